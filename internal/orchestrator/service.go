package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/piotrlinski/voice-recorder/internal/audio"
	"github.com/piotrlinski/voice-recorder/internal/feedback"
	"github.com/piotrlinski/voice-recorder/internal/hotkey"
	"github.com/piotrlinski/voice-recorder/internal/notify"
	"github.com/piotrlinski/voice-recorder/internal/paste"
	"github.com/piotrlinski/voice-recorder/internal/protocol"
	"github.com/piotrlinski/voice-recorder/internal/provider"
	"github.com/piotrlinski/voice-recorder/internal/session"
)

const (
	eventQueueSize  = 64
	pipelineTimeout = 90 * time.Second
	pasteTimeout    = 10 * time.Second
	archiveTimeout  = 5 * time.Second
)

// Archiver persists finished sessions. Failures never affect session state.
type Archiver interface {
	Append(ctx context.Context, sess session.Session) error
}

// Service is the recording-session state machine. A single goroutine owns
// the event loop and is the only mutator of the current session; hotkey
// edges and pipeline completions are delivered to it as discrete events in
// arrival order.
type Service struct {
	log       *slog.Logger
	store     *session.Store
	recorder  audio.Recorder
	basic     provider.Pipeline
	enhanced  provider.Pipeline
	paster    paste.Paster
	cues      feedback.Player
	source    hotkey.Source
	notifier  notify.Notifier
	archive   Archiver
	autoPaste bool

	events chan loopEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	loopWG sync.WaitGroup

	tracer  trace.Tracer
	metrics *sessionMetrics
}

type loopEvent struct {
	key  *hotkey.Event
	done *pipelineDone
}

type pipelineDone struct {
	sessionID string
	result    provider.Result
	err       error
}

// Options carries the collaborators the orchestrator drives.
type Options struct {
	Recorder  audio.Recorder
	Basic     provider.Pipeline
	Enhanced  provider.Pipeline
	Paster    paste.Paster
	Cues      feedback.Player
	Source    hotkey.Source
	Notifier  notify.Notifier
	Archive   Archiver
	AutoPaste bool
}

func New(parent context.Context, opts Options, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	logger := log.With(slog.String("component", "orchestrator"))
	cues := opts.Cues
	if cues == nil {
		cues = feedback.NopPlayer{}
	}
	return &Service{
		log:       logger,
		store:     session.NewStore(),
		recorder:  opts.Recorder,
		basic:     opts.Basic,
		enhanced:  opts.Enhanced,
		paster:    opts.Paster,
		cues:      cues,
		source:    opts.Source,
		notifier:  opts.Notifier,
		archive:   opts.Archive,
		autoPaste: opts.AutoPaste,
		events:    make(chan loopEvent, eventQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		tracer:    otel.Tracer("github.com/piotrlinski/voice-recorder/orchestrator"),
		metrics:   newSessionMetrics(logger),
	}
}

// Start initializes the hotkey source and begins the event loop. A source
// init failure is fatal and leaves the loop unstarted.
func (s *Service) Start() error {
	keyEvents := make(chan hotkey.Event, eventQueueSize)
	if err := s.source.Start(keyEvents); err != nil {
		return fmt.Errorf("hotkey bridge init: %w", err)
	}

	s.loopWG.Add(1)
	go func() {
		defer s.loopWG.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case evt, ok := <-keyEvents:
				if !ok {
					return
				}
				select {
				case s.events <- loopEvent{key: &evt}:
				case <-s.ctx.Done():
					return
				}
			}
		}
	}()

	s.loopWG.Add(1)
	go s.run()
	s.log.Info("orchestrator started")
	return nil
}

// Stop shuts the loop down. No new sessions are accepted afterwards; an
// in-flight pipeline call is abandoned via context cancellation.
func (s *Service) Stop() {
	s.cancel()
	s.source.Close()
	s.wg.Wait()
	s.loopWG.Wait()
	// An abandoned in-flight session still owns its clip; reclaim it.
	if cur, ok := s.store.Current(); ok {
		s.removeClip(cur.AudioPath)
	}
	s.log.Info("orchestrator stopped")
}

// Current returns a snapshot of the live session, if any.
func (s *Service) Current() (session.Session, bool) {
	return s.store.Current()
}

// History returns finished sessions oldest first.
func (s *Service) History() []session.Session {
	return s.store.History()
}

func (s *Service) run() {
	defer s.loopWG.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt := <-s.events:
			switch {
			case evt.key != nil:
				s.handleKey(*evt.key)
			case evt.done != nil:
				s.handleDone(*evt.done)
			}
		}
	}
}

func (s *Service) handleKey(evt hotkey.Event) {
	switch evt.Edge {
	case hotkey.EdgePress:
		s.handlePress(evt.Trigger)
	case hotkey.EdgeRelease:
		s.handleRelease(evt.Trigger)
	}
}

func (s *Service) handlePress(trigger hotkey.Trigger) {
	mode := modeFor(trigger)

	sess, err := s.store.Create(mode)
	if err != nil {
		// Reject-while-busy: the press is reported and dropped, never
		// queued. The active session is untouched.
		s.metrics.addRejected(s.ctx, string(mode))
		s.log.Warn("press rejected, session active", slog.String("mode", string(mode)))
		if s.notifier != nil {
			s.notifier.Notify(protocol.SessionNotice{
				Mode:      string(mode),
				State:     "rejected",
				Error:     session.ErrBusy.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
		return
	}

	if err := s.recorder.Start(s.ctx); err != nil {
		s.failCurrent(fmt.Errorf("%w: %w", ErrRecording, err))
		return
	}

	s.cues.PlayStart()
	s.metrics.addStarted(s.ctx, string(mode))
	s.log.Info("recording started",
		slog.String("session_id", sess.ID),
		slog.String("mode", string(mode)))
	s.notify(sess, "")
}

func (s *Service) handleRelease(trigger hotkey.Trigger) {
	mode := modeFor(trigger)

	cur, ok := s.store.Current()
	if !ok || cur.State != session.StateRecording || cur.Mode != mode {
		// Spurious release or release of the non-active trigger.
		s.log.Debug("release ignored", slog.String("mode", string(mode)))
		return
	}

	if err := s.store.Advance(session.StateProcessing); err != nil {
		s.log.Error("advance to processing failed", slog.String("error", err.Error()))
		return
	}
	now := time.Now()
	_ = s.store.UpdateCurrent(func(sess *session.Session) {
		sess.EndedAt = now
	})

	audioPath, err := s.recorder.Stop(s.ctx)
	if err != nil {
		s.failCurrent(fmt.Errorf("%w: %w", ErrRecording, err))
		return
	}
	_ = s.store.UpdateCurrent(func(sess *session.Session) {
		sess.AudioPath = audioPath
	})
	s.cues.PlayStop()

	cur, _ = s.store.Current()
	s.log.Info("recording stopped, processing",
		slog.String("session_id", cur.ID),
		slog.String("audio_path", audioPath))
	s.notify(cur, "")

	s.dispatchPipeline(cur, audioPath)
}

// dispatchPipeline runs the composed pipeline on a worker goroutine so the
// event loop stays responsive; completion comes back as a loop event.
func (s *Service) dispatchPipeline(sess session.Session, audioPath string) {
	pipeline := s.basic
	if sess.Mode == session.ModeEnhanced {
		pipeline = s.enhanced
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, pipelineTimeout)
		defer cancel()

		ctx, span := s.tracer.Start(ctx, "pipeline.run",
			trace.WithAttributes(
				attribute.String("session.id", sess.ID),
				attribute.String("session.mode", string(sess.Mode))))
		start := time.Now()
		result, err := pipeline.Run(ctx, audioPath)
		s.metrics.recordPipeline(ctx, string(sess.Mode), float64(time.Since(start).Milliseconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		select {
		case s.events <- loopEvent{done: &pipelineDone{sessionID: sess.ID, result: result, err: err}}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Service) handleDone(done pipelineDone) {
	cur, ok := s.store.Current()
	if !ok || cur.ID != done.sessionID || cur.State != session.StateProcessing {
		s.log.Debug("stale pipeline completion", slog.String("session_id", done.sessionID))
		return
	}

	defer s.removeClip(cur.AudioPath)

	if done.err != nil {
		// An enhancement failure still carries the raw transcript; keep
		// it on the errored session for inspection.
		if done.result.Text != "" {
			_ = s.store.UpdateCurrent(func(sess *session.Session) {
				sess.RawText = done.result.Text
			})
		}
		s.failCurrent(done.err)
		return
	}

	snapshot, err := s.store.CompleteCurrent(done.result.Text, done.result.EnhancedText)
	if err != nil {
		s.log.Error("complete session failed", slog.String("error", err.Error()))
		return
	}
	s.metrics.addCompleted(s.ctx, string(snapshot.Mode))
	s.archiveSession(snapshot)

	forward := snapshot.EnhancedText
	if forward == "" {
		forward = snapshot.RawText
	}
	s.notify(snapshot, forward)
	s.log.Info("session completed",
		slog.String("session_id", snapshot.ID),
		slog.Int("transcript_chars", len(forward)))

	// Empty transcripts complete but are never forwarded.
	if forward == "" || !s.autoPaste {
		return
	}
	s.dispatchPaste(snapshot.ID, forward)
}

// dispatchPaste runs the paste collaborator off the loop. A paste failure
// is reported but the session stays Completed: the text was produced.
func (s *Service) dispatchPaste(sessionID, text string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), pasteTimeout)
		defer cancel()
		if err := s.paster.Paste(ctx, text); err != nil {
			s.log.Error("paste failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			s.notifier.Notify(protocol.SessionNotice{
				SessionID: sessionID,
				State:     "paste_failed",
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
			return
		}
		s.log.Info("transcript pasted", slog.String("session_id", sessionID))
	}()
}

func (s *Service) failCurrent(cause error) {
	snapshot, err := s.store.FailCurrent(cause)
	if err != nil {
		s.log.Error("fail session failed", slog.String("error", err.Error()))
		return
	}
	kind := failureKind(cause)
	s.metrics.addFailed(s.ctx, string(snapshot.Mode), kind)
	s.archiveSession(snapshot)
	s.notify(snapshot, "")
	s.log.Error("session failed",
		slog.String("session_id", snapshot.ID),
		slog.String("kind", kind),
		slog.String("error", cause.Error()))
}

func (s *Service) archiveSession(snapshot session.Session) {
	if s.archive == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archive.Append(ctx, snapshot); err != nil {
			s.log.Warn("failed to archive session", slog.String("error", err.Error()))
		}
	}()
}

func (s *Service) removeClip(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove clip", slog.String("error", err.Error()))
	}
}

func (s *Service) notify(sess session.Session, text string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(protocol.SessionNotice{
		SessionID: sess.ID,
		Mode:      string(sess.Mode),
		State:     string(sess.State),
		Text:      text,
		Error:     sess.Err,
		Timestamp: time.Now().UTC(),
	})
}

func modeFor(trigger hotkey.Trigger) session.Mode {
	if trigger == hotkey.TriggerEnhanced {
		return session.ModeEnhanced
	}
	return session.ModeBasic
}
