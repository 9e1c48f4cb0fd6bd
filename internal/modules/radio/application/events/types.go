package events

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason says why the transport stopped streaming a track.
type TrackEndReason string

const (
	// TrackEndFinished means the track played to completion.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the stream broke or never started.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means playback was stopped on request (skip).
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another one.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was torn down.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvance reports whether the coordinator should move to the next
// entry. Replaced and cleanup ends are side effects of actions the
// coordinator itself initiated and must not advance the queue again.
func (r TrackEndReason) ShouldAdvance() bool {
	switch r {
	case TrackEndFinished, TrackEndLoadFailed, TrackEndStopped:
		return true
	default:
		return false
	}
}

// TrackEndedEvent is published by the transport when a stream ends,
// whether naturally, by skip, or by failure.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Reason  TrackEndReason
}

// TransportErrorEvent is published when the voice connection itself
// fails while active.
type TransportErrorEvent struct {
	GuildID snowflake.ID
	Message string
}
