package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// QueueEntry is one request to play a specific track. Entries are never
// mutated after creation; replacement is removal plus reinsertion.
type QueueEntry struct {
	Track           *Track
	RequestedBy     snowflake.ID // 0 when nobody is recorded as requester
	RequestedByName string       // display string, passed through to the UI
	Pinned          bool
	EnqueuedAt      time.Time
}

// NewQueueEntry creates a QueueEntry with the current time as EnqueuedAt.
func NewQueueEntry(track *Track, requestedBy snowflake.ID, displayName string, pinned bool) *QueueEntry {
	return &QueueEntry{
		Track:           track,
		RequestedBy:     requestedBy,
		RequestedByName: displayName,
		Pinned:          pinned,
		EnqueuedAt:      time.Now().UTC(),
	}
}
