package protocol

import "time"

// KeyEvent is a push-to-talk edge published by key listeners on the bus.
type KeyEvent struct {
	Trigger   string    `json:"trigger"`
	Edge      string    `json:"edge"`
	Key       string    `json:"key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionNotice broadcasts a session state change for observers.
type SessionNotice struct {
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TriggerBasic    = "basic"
	TriggerEnhanced = "enhanced"

	EdgePress   = "press"
	EdgeRelease = "release"
)

const (
	SubjectKeyBasic      = "input.key.basic"
	SubjectKeyEnhanced   = "input.key.enhanced"
	SubjectSessionNotice = "session.notice"
)
