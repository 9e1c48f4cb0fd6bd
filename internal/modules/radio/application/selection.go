package application

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// CanSelectResult says whether a user may pick a song right now.
type CanSelectResult struct {
	Allowed  bool
	Position int // 1-based waiting position, 0 when not applicable
	Message  string
}

// JoinResult is the outcome of joining the selection rotation.
type JoinResult struct {
	Accepted bool
	Position int // 0 when the joiner became selector immediately
	Message  string
}

// LeaveResult is the outcome of leaving the selection rotation.
type LeaveResult struct {
	Accepted bool
	Message  string
}

// SelectionStatus is a snapshot of the rotation for display.
type SelectionStatus struct {
	Selector  *domain.Selector
	Waiting   []domain.Waiter
	Remaining time.Duration // time left on the current turn, 0 if none
}

// SelectionTurnCoordinator runs the process-wide song-selection
// rotation: one user holds the time-boxed turn, everyone else waits in
// line. A turn ends when its holder picks a song, leaves, or times out;
// whichever fires first wins. A generation counter makes expired timer
// callbacks for already-advanced turns harmless.
type SelectionTurnCoordinator struct {
	mu           sync.Mutex
	rotation     *domain.Rotation
	turnDuration time.Duration

	timer      *time.Timer
	generation uint64
}

// NewSelectionTurnCoordinator creates a coordinator with an empty
// rotation.
func NewSelectionTurnCoordinator(turnDuration time.Duration) *SelectionTurnCoordinator {
	return &SelectionTurnCoordinator{
		rotation:     domain.NewRotation(),
		turnDuration: turnDuration,
	}
}

// CanSelect reports whether the user currently holds the turn, with an
// explanatory message when they do not.
func (s *SelectionTurnCoordinator) CanSelect(userID snowflake.ID) CanSelectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	selector := s.rotation.Selector()
	if selector == nil {
		return CanSelectResult{
			Message: "You must join the selection queue first to get your turn. One song per turn; join again to add more.",
		}
	}
	if selector.UserID == userID {
		return CanSelectResult{Allowed: true}
	}

	if pos := s.rotation.PositionOf(userID); pos != 0 {
		return CanSelectResult{
			Position: pos,
			Message:  fmt.Sprintf("You're #%d in the selection queue. Please wait for your turn!", pos+1),
		}
	}
	return CanSelectResult{
		Position: len(s.rotation.Waiting()) + 1,
		Message:  fmt.Sprintf("It's %s's turn. Join the queue to wait for your turn!", selector.DisplayName),
	}
}

// JoinQueue adds the user to the rotation. With nobody selecting, the
// joiner takes the turn immediately and the turn timer starts. Joining
// twice is rejected without changing state.
func (s *SelectionTurnCoordinator) JoinQueue(userID snowflake.ID, displayName string) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, position := s.rotation.Join(userID, displayName, time.Now())
	switch outcome {
	case domain.JoinBecameSelector:
		s.startTurnLocked()
		slog.Info("selection turn started", "user", userID, "name", displayName)
		return JoinResult{
			Accepted: true,
			Message:  fmt.Sprintf("It's your turn! You have %s to select a song.", formatTurnDuration(s.turnDuration)),
		}
	case domain.JoinQueued:
		return JoinResult{
			Accepted: true,
			Position: position,
			Message:  fmt.Sprintf("You joined the selection queue at position #%d. Please wait for your turn!", position+1),
		}
	case domain.JoinAlreadySelector:
		return JoinResult{Message: "It's already your turn to select!"}
	default: // domain.JoinAlreadyWaiting
		return JoinResult{
			Position: position,
			Message:  fmt.Sprintf("You're already in queue at position #%d.", position+1),
		}
	}
}

// LeaveQueue removes the user from the rotation. The current selector
// leaving ends their turn and advances the rotation; a waiter leaving
// does not affect the active turn.
func (s *SelectionTurnCoordinator) LeaveQueue(userID snowflake.ID) LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotation.IsSelector(userID) {
		s.advanceLocked()
		return LeaveResult{Accepted: true, Message: "Thanks! Moving to the next person in queue."}
	}
	if s.rotation.Leave(userID) {
		return LeaveResult{Accepted: true, Message: "You left the selection queue."}
	}
	return LeaveResult{Message: "You're not in the selection queue."}
}

// OnSongSelected is called after a successful queue-add. If the user
// holds the turn it ends immediately: one song per turn.
func (s *SelectionTurnCoordinator) OnSongSelected(userID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotation.IsSelector(userID) {
		slog.Info("selection turn completed", "user", userID)
		s.advanceLocked()
	}
}

// Status returns a display snapshot of the rotation.
func (s *SelectionTurnCoordinator) Status() SelectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SelectionStatus{Waiting: s.rotation.Waiting()}
	if selector := s.rotation.Selector(); selector != nil {
		copied := *selector
		status.Selector = &copied
		remaining := s.turnDuration - time.Since(selector.StartedAt)
		if remaining > 0 {
			status.Remaining = remaining
		}
	}
	return status
}

// Stop cancels the turn timer. Used at module shutdown.
func (s *SelectionTurnCoordinator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.generation++
}

// startTurnLocked arms the turn timer for the current selector. Caller
// holds s.mu.
func (s *SelectionTurnCoordinator) startTurnLocked() {
	s.stopTimerLocked()
	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(s.turnDuration, func() {
		s.expireTurn(gen)
	})
}

// expireTurn is the timer callback. It only acts if the turn it was
// armed for is still the active one.
func (s *SelectionTurnCoordinator) expireTurn(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	if selector := s.rotation.Selector(); selector != nil {
		slog.Info("selection turn timed out", "user", selector.UserID, "name", selector.DisplayName)
	}
	s.advanceLocked()
}

// advanceLocked ends the current turn: the next waiter takes over and
// the timer restarts, or the rotation empties. Caller holds s.mu.
func (s *SelectionTurnCoordinator) advanceLocked() {
	next := s.rotation.Advance(time.Now())
	if next == nil {
		s.stopTimerLocked()
		s.generation++
		slog.Debug("selection rotation empty")
		return
	}
	s.startTurnLocked()
	slog.Info("selection turn started", "user", next.UserID, "name", next.DisplayName)
}

func (s *SelectionTurnCoordinator) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// formatTurnDuration renders a turn length like "2 minutes" or "90 seconds".
func formatTurnDuration(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
}
