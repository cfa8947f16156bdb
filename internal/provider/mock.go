package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

type mockTranscriber struct{}

func NewMockTranscriber() Transcriber { return &mockTranscriber{} }

func (m *mockTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[mock transcript bytes=%d]", info.Size()), nil
}

type mockEnhancer struct{}

func NewMockEnhancer() Enhancer { return &mockEnhancer{} }

func (m *mockEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return "[enhanced] " + strings.TrimSpace(text), nil
}
