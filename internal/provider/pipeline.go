package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// Stage sentinels let callers classify which pipeline stage failed.
var (
	ErrTranscription = errors.New("transcription failed")
	ErrEnhancement   = errors.New("enhancement failed")
)

type basicPipeline struct {
	transcriber Transcriber
}

func (p *basicPipeline) Run(ctx context.Context, audioPath string) (Result, error) {
	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	return Result{Text: strings.TrimSpace(text)}, nil
}

type enhancedPipeline struct {
	transcriber Transcriber
	enhancer    Enhancer
}

func (p *enhancedPipeline) Run(ctx context.Context, audioPath string) (Result, error) {
	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		// Nothing to enhance; an empty clip still completes.
		return Result{}, nil
	}
	enhanced, err := p.enhancer.Enhance(ctx, text)
	if err != nil {
		return Result{Text: text}, fmt.Errorf("%w: %w", ErrEnhancement, err)
	}
	return Result{Text: text, EnhancedText: strings.TrimSpace(enhanced)}, nil
}

// NewBasicPipeline wraps a single transcriber call.
func NewBasicPipeline(t Transcriber) Pipeline {
	return &basicPipeline{transcriber: t}
}

// NewEnhancedPipeline chains transcription with enhancement. Enhancement
// runs only when transcription yields non-empty text; an enhancement error
// fails the run even though the raw text was obtained.
func NewEnhancedPipeline(t Transcriber, e Enhancer) Pipeline {
	return &enhancedPipeline{transcriber: t, enhancer: e}
}

// NewPipelines builds the provider pair for the configured mode once at
// startup and returns the basic and enhanced pipelines over it.
func NewPipelines(cfg config.Config) (Pipeline, Pipeline, error) {
	var (
		transcriber Transcriber
		enhancer    Enhancer
		err         error
	)
	switch cfg.Transcription.Mode {
	case "cloud":
		transcriber, err = NewOpenAITranscriber(cfg.Transcription.OpenAI)
		if err != nil {
			return nil, nil, err
		}
		enhancer, err = NewOpenAIEnhancer(cfg.Transcription.OpenAI, cfg.Enhancement)
		if err != nil {
			return nil, nil, err
		}
	case "local":
		transcriber, err = NewWhisperExecTranscriber(cfg.Transcription.Local)
		if err != nil {
			return nil, nil, err
		}
		enhancer = NewOllamaEnhancer(cfg.Transcription.Local, cfg.Enhancement)
	case "mock":
		transcriber = NewMockTranscriber()
		enhancer = NewMockEnhancer()
	default:
		return nil, nil, fmt.Errorf("unsupported transcription mode %q", cfg.Transcription.Mode)
	}
	return NewBasicPipeline(transcriber), NewEnhancedPipeline(transcriber, enhancer), nil
}
