package domain

import (
	"testing"
	"time"
)

func TestRotation_FirstJoinerBecomesSelector(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	outcome, pos := r.Join(1, "alice", now)
	if outcome != JoinBecameSelector || pos != 0 {
		t.Fatalf("expected JoinBecameSelector, got %v pos=%d", outcome, pos)
	}
	if !r.IsSelector(1) {
		t.Error("expected joiner to hold the turn")
	}
	if len(r.Waiting()) != 0 {
		t.Error("expected empty waiting line")
	}
}

func TestRotation_SubsequentJoinersQueueInOrder(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	r.Join(1, "alice", now)
	if outcome, pos := r.Join(2, "bob", now); outcome != JoinQueued || pos != 1 {
		t.Errorf("expected bob queued at 1, got %v pos=%d", outcome, pos)
	}
	if outcome, pos := r.Join(3, "carol", now); outcome != JoinQueued || pos != 2 {
		t.Errorf("expected carol queued at 2, got %v pos=%d", outcome, pos)
	}

	if pos := r.PositionOf(2); pos != 1 {
		t.Errorf("expected bob at position 1, got %d", pos)
	}
	if pos := r.PositionOf(3); pos != 2 {
		t.Errorf("expected carol at position 2, got %d", pos)
	}
}

func TestRotation_JoinIsIdempotent(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	r.Join(1, "alice", now)
	r.Join(2, "bob", now)

	if outcome, _ := r.Join(1, "alice", now); outcome != JoinAlreadySelector {
		t.Errorf("expected JoinAlreadySelector, got %v", outcome)
	}
	if outcome, pos := r.Join(2, "bob", now); outcome != JoinAlreadyWaiting || pos != 1 {
		t.Errorf("expected JoinAlreadyWaiting at 1, got %v pos=%d", outcome, pos)
	}
	if len(r.Waiting()) != 1 {
		t.Errorf("expected 1 waiter, got %d", len(r.Waiting()))
	}
}

func TestRotation_AdvancePromotesFrontOfLine(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	r.Join(1, "alice", now)
	r.Join(2, "bob", now)
	r.Join(3, "carol", now)

	next := r.Advance(now.Add(time.Minute))
	if next == nil || next.UserID != 2 {
		t.Fatalf("expected bob to take the turn, got %+v", next)
	}
	if !r.IsSelector(2) || r.IsSelector(1) {
		t.Error("expected selector to move from alice to bob")
	}
	if pos := r.PositionOf(3); pos != 1 {
		t.Errorf("expected carol to move up to position 1, got %d", pos)
	}
}

func TestRotation_AdvanceEmptiesOut(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	r.Join(1, "alice", now)
	if next := r.Advance(now); next != nil {
		t.Errorf("expected empty rotation, got %+v", next)
	}
	if r.Selector() != nil {
		t.Error("expected no selector")
	}
}

func TestRotation_LeaveRemovesWaiterOnly(t *testing.T) {
	r := NewRotation()
	now := time.Now()

	r.Join(1, "alice", now)
	r.Join(2, "bob", now)
	r.Join(3, "carol", now)

	if !r.Leave(2) {
		t.Fatal("expected bob to leave the waiting line")
	}
	if pos := r.PositionOf(3); pos != 1 {
		t.Errorf("expected carol to move up, got position %d", pos)
	}

	// The selector is not in the waiting line.
	if r.Leave(1) {
		t.Error("expected Leave to not touch the selector")
	}
	if !r.IsSelector(1) {
		t.Error("expected alice to still hold the turn")
	}

	// Unknown users are a no-op.
	if r.Leave(99) {
		t.Error("expected no removal for unknown user")
	}
}
