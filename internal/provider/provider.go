package provider

import "context"

// Transcriber abstracts speech-to-text backends.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Enhancer abstracts text cleanup backends applied after transcription.
type Enhancer interface {
	Enhance(ctx context.Context, text string) (string, error)
}

// Result is the transient output of one pipeline invocation.
type Result struct {
	Text         string
	EnhancedText string
}

// Pipeline runs a recorded clip through the configured provider chain.
type Pipeline interface {
	Run(ctx context.Context, audioPath string) (Result, error)
}
