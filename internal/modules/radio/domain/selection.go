package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Selector is the user currently holding the song-selection turn.
type Selector struct {
	UserID      snowflake.ID
	DisplayName string
	StartedAt   time.Time
}

// Waiter is a user queued for a selection turn.
type Waiter struct {
	UserID      snowflake.ID
	DisplayName string
	JoinedAt    time.Time
}

// JoinOutcome describes the result of a Join call.
type JoinOutcome int

const (
	// JoinBecameSelector means the rotation was empty and the joiner
	// got the turn immediately.
	JoinBecameSelector JoinOutcome = iota
	// JoinQueued means the joiner was appended to the waiting line.
	JoinQueued
	// JoinAlreadySelector means the joiner already holds the turn.
	JoinAlreadySelector
	// JoinAlreadyWaiting means the joiner is already in the waiting line.
	JoinAlreadyWaiting
)

// Rotation is the turn-based selection state: at most one selector and
// a FIFO waiting line, unique by user. A user appears in at most one of
// the two, and the waiting line is empty whenever there is no selector.
//
// Rotation is not safe for concurrent use; the owning coordinator
// serializes access and drives the per-turn timer.
type Rotation struct {
	selector *Selector
	waiting  []Waiter
}

// NewRotation creates an empty Rotation.
func NewRotation() *Rotation {
	return &Rotation{}
}

// Selector returns the current selector, or nil.
func (r *Rotation) Selector() *Selector {
	return r.selector
}

// IsSelector reports whether the user holds the current turn.
func (r *Rotation) IsSelector(userID snowflake.ID) bool {
	return r.selector != nil && r.selector.UserID == userID
}

// Waiting returns a snapshot of the waiting line.
func (r *Rotation) Waiting() []Waiter {
	out := make([]Waiter, len(r.waiting))
	copy(out, r.waiting)
	return out
}

// PositionOf returns the user's 1-based position in the waiting line,
// or 0 if they are not waiting.
func (r *Rotation) PositionOf(userID snowflake.ID) int {
	for i, w := range r.waiting {
		if w.UserID == userID {
			return i + 1
		}
	}
	return 0
}

// Join adds the user to the rotation. With no selector present the
// joiner takes the turn immediately (the waiting line never holds
// someone with nobody selecting). Joining twice is a no-op.
// Position is the 1-based waiting position for JoinQueued, 0 otherwise.
func (r *Rotation) Join(userID snowflake.ID, displayName string, now time.Time) (outcome JoinOutcome, position int) {
	if r.IsSelector(userID) {
		return JoinAlreadySelector, 0
	}
	if pos := r.PositionOf(userID); pos != 0 {
		return JoinAlreadyWaiting, pos
	}

	if r.selector == nil {
		r.selector = &Selector{UserID: userID, DisplayName: displayName, StartedAt: now}
		return JoinBecameSelector, 0
	}

	r.waiting = append(r.waiting, Waiter{UserID: userID, DisplayName: displayName, JoinedAt: now})
	return JoinQueued, len(r.waiting)
}

// Leave removes the user from the waiting line. Returns false if the
// user is not waiting. Leaving as the current selector is handled by
// the coordinator, which advances the rotation instead.
func (r *Rotation) Leave(userID snowflake.ID) bool {
	for i, w := range r.waiting {
		if w.UserID == userID {
			r.waiting = append(r.waiting[:i], r.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Advance ends the current turn: the front of the waiting line becomes
// the selector, or the rotation empties out. Returns the new selector,
// or nil.
func (r *Rotation) Advance(now time.Time) *Selector {
	if len(r.waiting) == 0 {
		r.selector = nil
		return nil
	}

	next := r.waiting[0]
	r.waiting = r.waiting[1:]
	r.selector = &Selector{UserID: next.UserID, DisplayName: next.DisplayName, StartedAt: now}
	return r.selector
}
