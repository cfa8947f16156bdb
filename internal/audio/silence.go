package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// SilenceRecorder fabricates silent clips instead of capturing the
// microphone. It backs mock mode and lets the daemon run end to end on
// machines without capture tooling.
type SilenceRecorder struct {
	sampleRate int
	channels   int
	tempDir    string
	mu         sync.Mutex
	startedAt  time.Time
	running    bool
}

func NewSilenceRecorder(cfg config.AudioConfig, tempDir string) *SilenceRecorder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &SilenceRecorder{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		tempDir:    tempDir,
	}
}

func (r *SilenceRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("recorder already running")
	}
	r.running = true
	r.startedAt = time.Now()
	return nil
}

func (r *SilenceRecorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return "", errors.New("recorder not running")
	}
	r.running = false

	held := time.Since(r.startedAt)
	if held > 2*time.Second {
		held = 2 * time.Second
	}
	samples := int(float64(r.sampleRate)*held.Seconds()) * r.channels
	if samples == 0 {
		samples = r.sampleRate / 10
	}
	pcm := make([]byte, samples*2)

	path := filepath.Join(r.tempDir, fmt.Sprintf("rec_%s.wav", uuid.NewString()))
	if err := WritePCMWAV(path, pcm, r.sampleRate, r.channels); err != nil {
		return "", err
	}
	return path, nil
}
