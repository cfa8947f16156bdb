package session

import (
	"errors"
	"testing"
)

func TestCreateClaimsActiveSlot(t *testing.T) {
	store := NewStore()

	sess, err := store.Create(ModeBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected session id")
	}
	if sess.State != StateRecording {
		t.Fatalf("expected Recording, got %s", sess.State)
	}
	if sess.StartedAt.IsZero() {
		t.Fatal("expected started timestamp")
	}

	if _, err := store.Create(ModeEnhanced); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestCreateAfterRetire(t *testing.T) {
	store := NewStore()

	if _, err := store.Create(ModeBasic); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Advance(StateProcessing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := store.CompleteCurrent("hello", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := store.Create(ModeEnhanced); err != nil {
		t.Fatalf("expected create to succeed after retire, got %v", err)
	}
}

func TestAdvanceEnforcesMonotonicity(t *testing.T) {
	store := NewStore()

	if _, err := store.Create(ModeBasic); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Advance(StateCompleted); err == nil {
		t.Fatal("expected error skipping Processing")
	}
	if err := store.Advance(StateProcessing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.Advance(StateRecording); err == nil {
		t.Fatal("expected error moving backwards")
	}
}

func TestStateTransitionTable(t *testing.T) {
	cases := []struct {
		from, to State
		allowed  bool
	}{
		{StateIdle, StateRecording, true},
		{StateRecording, StateProcessing, true},
		{StateProcessing, StateCompleted, true},
		{StateProcessing, StateError, true},
		{StateIdle, StateProcessing, false},
		{StateRecording, StateCompleted, false},
		{StateCompleted, StateRecording, false},
		{StateError, StateRecording, false},
		{StateProcessing, StateRecording, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestFailCurrentKeepsRawText(t *testing.T) {
	store := NewStore()

	if _, err := store.Create(ModeEnhanced); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Advance(StateProcessing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.UpdateCurrent(func(sess *Session) { sess.RawText = "um ok" }); err != nil {
		t.Fatalf("update: %v", err)
	}

	snapshot, err := store.FailCurrent(errors.New("enhancement failed"))
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if snapshot.State != StateError {
		t.Fatalf("expected Error, got %s", snapshot.State)
	}
	if snapshot.RawText != "um ok" {
		t.Fatalf("expected raw text preserved, got %q", snapshot.RawText)
	}
	if snapshot.Err == "" {
		t.Fatal("expected error message on failed session")
	}

	if _, ok := store.Current(); ok {
		t.Fatal("expected no current session after fail")
	}
}

func TestHistoryIsOrderedAndIdempotent(t *testing.T) {
	store := NewStore()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ModeBasic); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if err := store.Advance(StateProcessing); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if _, err := store.CompleteCurrent("text", ""); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
	}

	first := store.History()
	second := store.History()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 history entries, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("history order changed between calls at index %d", i)
		}
	}

	// Mutating the returned slice must not affect the store.
	first[0].RawText = "tampered"
	if store.History()[0].RawText == "tampered" {
		t.Fatal("history snapshot is not a copy")
	}
}

func TestUpdateCurrentRequiresActiveSession(t *testing.T) {
	store := NewStore()
	if err := store.UpdateCurrent(func(*Session) {}); err == nil {
		t.Fatal("expected error with no active session")
	}
}
