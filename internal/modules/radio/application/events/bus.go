package events

import (
	"log/slog"
	"sync"
)

// DefaultBufferSize is the default buffer size for event channels.
const DefaultBufferSize = 100

// Bus carries transport notifications from the audio adapter to the
// playback dispatcher on buffered channels.
type Bus struct {
	trackEnded     chan TrackEndedEvent
	transportError chan TransportErrorEvent

	closed bool
	mu     sync.RWMutex
}

// NewBus creates a Bus with the given buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		trackEnded:     make(chan TrackEndedEvent, bufferSize),
		transportError: make(chan TransportErrorEvent, bufferSize),
	}
}

// PublishTrackEnded publishes a TrackEndedEvent. Non-blocking: if the
// buffer is full the event is dropped with a warning.
func (b *Bus) PublishTrackEnded(event TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TrackEnded")
		return
	}

	select {
	case b.trackEnded <- event:
		slog.Debug("published event", "type", "TrackEnded", "guild", event.GuildID, "reason", event.Reason)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TrackEnded")
	}
}

// PublishTransportError publishes a TransportErrorEvent. Non-blocking:
// if the buffer is full the event is dropped with a warning.
func (b *Bus) PublishTransportError(event TransportErrorEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TransportError")
		return
	}

	select {
	case b.transportError <- event:
		slog.Debug("published event", "type", "TransportError", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TransportError")
	}
}

// TrackEnded returns the channel for TrackEndedEvent.
func (b *Bus) TrackEnded() <-chan TrackEndedEvent {
	return b.trackEnded
}

// TransportError returns the channel for TransportErrorEvent.
func (b *Bus) TransportError() <-chan TransportErrorEvent {
	return b.transportError
}

// Close closes the event channels. Publishing afterwards is a warning,
// not a panic.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.trackEnded)
	close(b.transportError)

	slog.Debug("event bus closed")
}
