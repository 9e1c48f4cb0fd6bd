package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/events"
)

// PlaybackEventHandler routes transport events to the owning guild
// coordinator. It listens for TrackEnded and TransportError events on
// the bus and drives queue advancement and reconnect handling.
type PlaybackEventHandler struct {
	registry *SessionRegistry
	bus      *events.Bus

	wg   sync.WaitGroup
	done chan struct{}
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(registry *SessionRegistry, bus *events.Bus) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		registry: registry,
		bus:      bus,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events in background goroutines.
func (h *PlaybackEventHandler) Start(ctx context.Context) {
	h.wg.Add(2)

	// Handle TrackEnded events
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case event, ok := <-h.bus.TrackEnded():
				if !ok {
					return
				}
				h.handleTrackEnded(ctx, event)
			}
		}
	}()

	// Handle TransportError events
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case event, ok := <-h.bus.TransportError():
				if !ok {
					return
				}
				h.handleTransportError(ctx, event)
			}
		}
	}()

	slog.Debug("playback event handler started")
}

// Stop stops the event handler and waits for goroutines to finish.
func (h *PlaybackEventHandler) Stop() {
	close(h.done)
	h.wg.Wait()
	slog.Debug("playback event handler stopped")
}

func (h *PlaybackEventHandler) handleTrackEnded(ctx context.Context, event events.TrackEndedEvent) {
	coordinator := h.registry.Get(event.GuildID)
	if coordinator == nil {
		slog.Debug("track ended for unknown session",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}

	coordinator.OnTrackEnded(ctx, event.Reason)
}

func (h *PlaybackEventHandler) handleTransportError(ctx context.Context, event events.TransportErrorEvent) {
	coordinator := h.registry.Get(event.GuildID)
	if coordinator == nil {
		slog.Debug("transport error for unknown session",
			"guild", event.GuildID,
			"message", event.Message,
		)
		return
	}

	slog.Warn("transport error, attempting reconnect",
		"guild", event.GuildID,
		"message", event.Message,
	)
	coordinator.OnTransportError(ctx, event.Message)
}
