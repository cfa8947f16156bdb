package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// whisperExecTranscriber shells out to a local whisper command. The command
// receives the clip path and prints a JSON object with the transcript on
// stdout.
type whisperExecTranscriber struct {
	cmd []string
	cfg config.LocalConfig
	mu  sync.Mutex
}

type whisperExecResult struct {
	Text string `json:"text"`
}

func NewWhisperExecTranscriber(cfg config.LocalConfig) (Transcriber, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.WhisperCommand)
	if err != nil {
		return nil, fmt.Errorf("parse whisper command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("whisper command is empty")
	}
	return &whisperExecTranscriber{cmd: args, cfg: cfg}, nil
}

func (t *whisperExecTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	args := append([]string{}, t.cmd...)
	base := args[0]
	cmdArgs := args[1:]
	cmdArgs = append(cmdArgs, "--audio", audioPath)
	if t.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", t.cfg.ModelPath)
	}
	if t.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", t.cfg.Language)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("whisper command failed: %w: %s", err, stderr.String())
	}

	var resp whisperExecResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return resp.Text, nil
}
