package domain

import (
	"fmt"
	"time"
)

// UptimeReport represents how long the bot has been running.
type UptimeReport struct {
	StartedAt time.Time
	Uptime    time.Duration
}

// NewUptimeReport creates an UptimeReport for the given start time.
func NewUptimeReport(startedAt, now time.Time) *UptimeReport {
	return &UptimeReport{
		StartedAt: startedAt,
		Uptime:    now.Sub(startedAt),
	}
}

// Format renders the uptime as "1d 2h 3m 4s", omitting leading zero units.
func (r *UptimeReport) Format() string {
	total := int64(r.Uptime.Seconds())
	if total < 0 {
		total = 0
	}

	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
