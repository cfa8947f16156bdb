package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBusy is returned when a session is requested while another one is
// still recording or processing.
var ErrBusy = errors.New("a recording session is already active")

// Store owns the single mutable current-session slot plus an append-only
// history of finished sessions. Finished sessions are immutable.
type Store struct {
	mu      sync.Mutex
	current *Session
	history []Session
	clock   func() time.Time
}

func NewStore() *Store {
	return &Store{clock: time.Now}
}

// Create claims the active slot for a new session in the given mode and
// moves it to Recording. It never blocks: if the slot is taken it fails
// with ErrBusy.
func (s *Store) Create(mode Mode) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Active() {
		return Session{}, ErrBusy
	}
	sess := newSession(mode, s.clock())
	sess.State = StateRecording
	s.current = sess
	return *sess, nil
}

// UpdateCurrent applies mutator to the live session under the store lock.
func (s *Store) UpdateCurrent(mutator func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || !s.current.Active() {
		return errors.New("no active session")
	}
	mutator(s.current)
	return nil
}

// Advance moves the live session to next, enforcing monotonicity.
func (s *Store) Advance(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return errors.New("no active session")
	}
	if !s.current.State.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s", s.current.State, next)
	}
	s.current.State = next
	return nil
}

// CompleteCurrent finalizes the live session as Completed and retires it
// into history.
func (s *Store) CompleteCurrent(rawText, enhancedText string) (Session, error) {
	return s.retire(func(sess *Session) {
		sess.State = StateCompleted
		sess.RawText = rawText
		sess.EnhancedText = enhancedText
	})
}

// FailCurrent finalizes the live session as Error and retires it into
// history. The raw transcript, if one was obtained, is preserved.
func (s *Store) FailCurrent(cause error) (Session, error) {
	return s.retire(func(sess *Session) {
		sess.State = StateError
		if cause != nil {
			sess.Err = cause.Error()
		}
	})
}

func (s *Store) retire(finalize func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.State.Terminal() {
		return Session{}, errors.New("no active session")
	}
	finalize(s.current)
	snapshot := *s.current
	s.history = append(s.history, snapshot)
	s.current = nil
	return snapshot, nil
}

// Current returns a snapshot of the live session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// History returns finished sessions oldest first. The returned slice is a
// copy and safe to retain.
func (s *Store) History() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, len(s.history))
	copy(out, s.history)
	return out
}
