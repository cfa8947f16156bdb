package feedback

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/piotrlinski/voice-recorder/internal/config"
)

// Player gives the operator audible confirmation that recording started or
// stopped. Strictly best-effort: failures are logged and swallowed.
type Player interface {
	PlayStart()
	PlayStop()
}

type execPlayer struct {
	startCmd []string
	stopCmd  []string
	log      *slog.Logger
}

func NewExecPlayer(cfg config.FeedbackConfig, log *slog.Logger) Player {
	if !cfg.Enabled {
		return NopPlayer{}
	}
	return &execPlayer{
		startCmd: parseCommand(cfg.StartCommand, log),
		stopCmd:  parseCommand(cfg.StopCommand, log),
		log:      log.With(slog.String("component", "feedback")),
	}
}

func parseCommand(command string, log *slog.Logger) []string {
	if command == "" {
		return nil
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		log.Warn("invalid feedback command", slog.String("error", err.Error()))
		return nil
	}
	return args
}

func (p *execPlayer) PlayStart() { p.play(p.startCmd) }
func (p *execPlayer) PlayStop()  { p.play(p.stopCmd) }

func (p *execPlayer) play(args []string) {
	if len(args) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
			p.log.Warn("feedback cue failed", slog.String("error", err.Error()))
		}
	}()
}

// NopPlayer is used when audio cues are disabled.
type NopPlayer struct{}

func (NopPlayer) PlayStart() {}
func (NopPlayer) PlayStop()  {}
