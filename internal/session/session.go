package session

import (
	"time"

	"github.com/google/uuid"
)

// Mode selects the pipeline a session runs through.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeEnhanced Mode = "enhanced"
)

// State is the lifecycle position of a session. Transitions are strictly
// forward: Idle -> Recording -> Processing -> Completed or Error.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

var stateRank = map[State]int{
	StateIdle:       0,
	StateRecording:  1,
	StateProcessing: 2,
	StateCompleted:  3,
	StateError:      3,
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// CanTransition reports whether moving to next respects monotonicity.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	return stateRank[next] == stateRank[s]+1
}

// Session is one press-to-result unit of work. Values handed out by the
// store are copies; only the orchestrator mutates the live session.
type Session struct {
	ID           string
	Mode         Mode
	State        State
	AudioPath    string
	RawText      string
	EnhancedText string
	Err          string
	StartedAt    time.Time
	EndedAt      time.Time
}

func newSession(mode Mode, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		State:     StateIdle,
		StartedAt: now,
	}
}

// Active reports whether the session holds the single active slot.
func (s *Session) Active() bool {
	return s.State == StateRecording || s.State == StateProcessing
}
