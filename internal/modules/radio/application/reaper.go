package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleReaper periodically disconnects guild sessions that have been
// inactive for longer than the configured threshold. A session with a
// track playing or paused is never reaped regardless of its last
// activity timestamp.
type IdleReaper struct {
	registry  *SessionRegistry
	threshold time.Duration
	interval  time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewIdleReaper creates a reaper over the given registry.
func NewIdleReaper(registry *SessionRegistry, threshold, interval time.Duration) *IdleReaper {
	return &IdleReaper{
		registry:  registry,
		threshold: threshold,
		interval:  interval,
	}
}

// Start launches the sweep loop. Stop must be called to release it.
func (r *IdleReaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the sweep loop and waits for it to exit.
func (r *IdleReaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *IdleReaper) sweep(ctx context.Context) {
	now := time.Now()
	for _, coordinator := range r.registry.All() {
		if coordinator.Playing() {
			continue
		}

		idle := now.Sub(coordinator.LastActivity())
		if idle < r.threshold {
			continue
		}

		guildID := coordinator.GuildID()
		slog.Info("disconnecting idle session", "guild", guildID, "idle", idle)
		r.registry.Destroy(ctx, guildID)
	}
}
