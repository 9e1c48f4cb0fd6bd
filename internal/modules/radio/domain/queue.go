package domain

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Enqueue rejections. Callers branch on these with errors.Is; they are
// expected outcomes, not faults.
var (
	// ErrQueueFull is returned when a non-pinned enqueue would exceed
	// the queue's capacity.
	ErrQueueFull = errors.New("the queue is full")

	// ErrUserQuotaExceeded is returned when a non-pinned enqueue would
	// exceed the requester's per-user limit.
	ErrUserQuotaExceeded = errors.New("you already have the maximum number of songs in the queue")
)

// SkipVoteResult describes the outcome of a single skip vote.
type SkipVoteResult struct {
	AlreadyVoted bool
	Votes        int
	Required     int
	Passed       bool // true exactly once, on the vote that reaches Required
}

// PlaybackQueue holds one guild's pending playback requests in two FIFO
// lanes: pinned entries drain strictly before normal ones. It also
// tracks the currently playing entry, skip votes against it, per-user
// active counts and the last user-visible activity time.
//
// PlaybackQueue is not safe for concurrent use; the owning coordinator
// serializes access.
type PlaybackQueue struct {
	pinned []*QueueEntry
	normal []*QueueEntry

	current *QueueEntry
	loop    bool

	skipVotes     map[snowflake.ID]struct{}
	votesRequired int

	activeCount map[snowflake.ID]int
	maxSize     int
	maxPerUser  int

	lastActivity time.Time
}

// NewPlaybackQueue creates an empty PlaybackQueue with the given limits.
func NewPlaybackQueue(maxSize, maxPerUser, votesRequired int) *PlaybackQueue {
	return &PlaybackQueue{
		skipVotes:     make(map[snowflake.ID]struct{}),
		activeCount:   make(map[snowflake.ID]int),
		maxSize:       maxSize,
		maxPerUser:    maxPerUser,
		votesRequired: votesRequired,
		lastActivity:  time.Now(),
	}
}

// occupied counts every slot in use: both lanes plus the current entry.
func (q *PlaybackQueue) occupied() int {
	n := len(q.pinned) + len(q.normal)
	if q.current != nil {
		n++
	}
	return n
}

// Enqueue appends an entry to its lane. Non-pinned entries are subject
// to the capacity and per-user limits; pinned entries bypass both.
func (q *PlaybackQueue) Enqueue(entry *QueueEntry) error {
	q.Touch()

	if entry.Pinned {
		q.pinned = append(q.pinned, entry)
		return nil
	}

	if q.occupied() >= q.maxSize {
		return ErrQueueFull
	}
	if entry.RequestedBy != 0 && q.activeCount[entry.RequestedBy] >= q.maxPerUser {
		return ErrUserQuotaExceeded
	}

	if entry.RequestedBy != 0 {
		q.activeCount[entry.RequestedBy]++
	}
	q.normal = append(q.normal, entry)
	return nil
}

// DequeueNext pops the next entry, pinned lane first, and makes it the
// current entry. Skip votes reset because the current entry changed.
// Returns nil if both lanes are empty.
func (q *PlaybackQueue) DequeueNext() *QueueEntry {
	var next *QueueEntry
	switch {
	case len(q.pinned) > 0:
		next = q.pinned[0]
		q.pinned = q.pinned[1:]
	case len(q.normal) > 0:
		next = q.normal[0]
		q.normal = q.normal[1:]
	default:
		return nil
	}

	q.current = next
	q.resetSkipVotes()
	return next
}

// FinishCurrent discards the current entry, releasing its requester's
// quota slot if it held one.
func (q *PlaybackQueue) FinishCurrent() {
	if q.current == nil {
		return
	}
	q.releaseSlot(q.current)
	q.current = nil
	q.resetSkipVotes()
}

// Replay reinstates a finished entry as the current one without going
// through the lanes. Used for loop playback: the entry reclaims its
// requester's quota slot released by FinishCurrent.
func (q *PlaybackQueue) Replay(entry *QueueEntry) {
	if entry.RequestedBy != 0 && !entry.Pinned {
		q.activeCount[entry.RequestedBy]++
	}
	q.current = entry
	q.resetSkipVotes()
}

func (q *PlaybackQueue) releaseSlot(entry *QueueEntry) {
	if entry.RequestedBy == 0 || entry.Pinned {
		return
	}
	if n := q.activeCount[entry.RequestedBy]; n > 1 {
		q.activeCount[entry.RequestedBy] = n - 1
	} else {
		delete(q.activeCount, entry.RequestedBy)
	}
}

// AddSkipVote records one vote against the current entry. A user may
// vote at most once per current entry.
func (q *PlaybackQueue) AddSkipVote(userID snowflake.ID) SkipVoteResult {
	if _, voted := q.skipVotes[userID]; voted {
		return SkipVoteResult{
			AlreadyVoted: true,
			Votes:        len(q.skipVotes),
			Required:     q.votesRequired,
		}
	}

	q.skipVotes[userID] = struct{}{}
	return SkipVoteResult{
		Votes:    len(q.skipVotes),
		Required: q.votesRequired,
		Passed:   len(q.skipVotes) == q.votesRequired,
	}
}

func (q *PlaybackQueue) resetSkipVotes() {
	q.skipVotes = make(map[snowflake.ID]struct{})
}

// RemoveByTrackID removes the first queued entry for the given track
// from the normal lane. The current entry and the pinned lane are not
// touched. Returns true if an entry was removed.
func (q *PlaybackQueue) RemoveByTrackID(id TrackID) bool {
	for i, entry := range q.normal {
		if entry.Track.ID == id {
			q.releaseSlot(entry)
			q.normal = append(q.normal[:i], q.normal[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties both lanes and resets per-user counts. The current
// entry keeps playing.
func (q *PlaybackQueue) Clear() {
	q.pinned = nil
	q.normal = nil
	q.activeCount = make(map[snowflake.ID]int)
}

// Current returns the currently playing entry, or nil.
func (q *PlaybackQueue) Current() *QueueEntry {
	return q.current
}

// Entries returns a snapshot of the queued entries in dequeue order:
// the pinned lane followed by the normal lane.
func (q *PlaybackQueue) Entries() []*QueueEntry {
	out := make([]*QueueEntry, 0, len(q.pinned)+len(q.normal))
	out = append(out, q.pinned...)
	out = append(out, q.normal...)
	return out
}

// Len returns the number of queued entries, excluding the current one.
func (q *PlaybackQueue) Len() int {
	return len(q.pinned) + len(q.normal)
}

// QueuedCountForUser returns how many non-pinned entries the user has
// queued or playing.
func (q *PlaybackQueue) QueuedCountForUser(userID snowflake.ID) int {
	return q.activeCount[userID]
}

// SetLoop toggles replaying the current entry on completion.
func (q *PlaybackQueue) SetLoop(enabled bool) {
	q.loop = enabled
}

// LoopEnabled reports whether loop playback is on.
func (q *PlaybackQueue) LoopEnabled() bool {
	return q.loop
}

// Touch records user-visible activity for idle tracking.
func (q *PlaybackQueue) Touch() {
	q.lastActivity = time.Now()
}

// LastActivity returns the time of the last user-visible action.
func (q *PlaybackQueue) LastActivity() time.Time {
	return q.lastActivity
}
