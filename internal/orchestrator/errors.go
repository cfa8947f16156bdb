package orchestrator

import (
	"errors"

	"github.com/piotrlinski/voice-recorder/internal/provider"
	"github.com/piotrlinski/voice-recorder/internal/session"
)

// ErrRecording marks failures of the capture collaborator, including a
// missing or unusable clip after stop.
var ErrRecording = errors.New("recording failed")

// ErrBusy is re-exported so callers observing rejections do not need to
// import the session package.
var ErrBusy = session.ErrBusy

// failureKind buckets a session failure for notices and metrics.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrRecording):
		return "recording_failed"
	case errors.Is(err, provider.ErrEnhancement):
		return "enhancement_failed"
	case errors.Is(err, provider.ErrTranscription):
		return "transcription_failed"
	default:
		return "pipeline_failed"
	}
}
