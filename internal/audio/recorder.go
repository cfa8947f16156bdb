package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// Recorder captures microphone audio between Start and Stop. Start and
// Stop are expected to be fast; the recording duration itself is bounded
// by how long the user holds the key.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
}

// execRecorder drives an external capture command. The command receives
// the output path as its final argument and must keep writing WAV data
// until interrupted.
type execRecorder struct {
	cmd     []string
	tempDir string
	mu      sync.Mutex
	running *exec.Cmd
	outPath string
}

func NewExecRecorder(cfg config.RecorderConfig) (Recorder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recorder command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("recorder command is empty")
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &execRecorder{cmd: args, tempDir: tempDir}, nil
}

func (r *execRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running != nil {
		return errors.New("recorder already running")
	}

	outPath := filepath.Join(r.tempDir, fmt.Sprintf("rec_%s.wav", uuid.NewString()))
	args := append(append([]string{}, r.cmd[1:]...), outPath)
	cmd := exec.Command(r.cmd[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder command: %w", err)
	}
	r.running = cmd
	r.outPath = outPath
	return nil
}

func (r *execRecorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running == nil {
		return "", errors.New("recorder not running")
	}
	cmd := r.running
	outPath := r.outPath
	r.running = nil
	r.outPath = ""

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		// Capture tools exit non-zero on interrupt; the written file is
		// what matters, validated below.
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return "", ctx.Err()
	}

	if err := ValidateWAV(outPath); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}
