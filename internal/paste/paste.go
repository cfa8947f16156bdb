package paste

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// Paster delivers transcribed text into the foreground application.
type Paster interface {
	Paste(ctx context.Context, text string) error
}

// execPaster pipes the text into an external paste command, e.g. a script
// wrapping pbcopy/osascript on macOS or wtype on Wayland.
type execPaster struct {
	cmd []string
	mu  sync.Mutex
}

func NewExecPaster(cfg config.PasteConfig) (Paster, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse paste command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("paste command is empty")
	}
	return &execPaster{cmd: args}, nil
}

func (p *execPaster) Paste(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.cmd[0], p.cmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("paste command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// NopPaster discards text; used when auto-paste is disabled.
type NopPaster struct{}

func (NopPaster) Paste(context.Context, string) error { return nil }
