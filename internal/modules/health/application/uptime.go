package application

import (
	"time"

	"github.com/poonnyworld/phantom-melody/internal/modules/health/domain"
)

// UptimeInteractor reports how long the bot has been running.
type UptimeInteractor struct {
	startedAt time.Time
	now       func() time.Time
}

// NewUptimeInteractor creates an interactor anchored at the given start
// time.
func NewUptimeInteractor(startedAt time.Time) *UptimeInteractor {
	return &UptimeInteractor{
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Execute returns the current uptime report.
func (u *UptimeInteractor) Execute() *domain.UptimeReport {
	return domain.NewUptimeReport(u.startedAt, u.now())
}
