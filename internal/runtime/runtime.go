package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piotrlinski/voice-recorder/internal/audio"
	"github.com/piotrlinski/voice-recorder/internal/bus"
	"github.com/piotrlinski/voice-recorder/internal/config"
	"github.com/piotrlinski/voice-recorder/internal/feedback"
	"github.com/piotrlinski/voice-recorder/internal/history"
	"github.com/piotrlinski/voice-recorder/internal/hotkey"
	"github.com/piotrlinski/voice-recorder/internal/natsserver"
	"github.com/piotrlinski/voice-recorder/internal/notify"
	"github.com/piotrlinski/voice-recorder/internal/orchestrator"
	"github.com/piotrlinski/voice-recorder/internal/paste"
	"github.com/piotrlinski/voice-recorder/internal/provider"
	"github.com/piotrlinski/voice-recorder/internal/session"
)

// Runtime wires the daemon: telemetry, bus, session archive, provider
// pipelines, the orchestrator, and the HTTP introspection surface.
type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	orch          *orchestrator.Service
	archive       *history.Store
	ready         atomic.Bool
	wg            sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings the daemon up and blocks until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	archive, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open session archive: %w", err)
	}
	r.archive = archive
	defer archive.Close()

	basic, enhanced, err := provider.NewPipelines(r.cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipelines: %w", err)
	}

	recorder, err := r.buildRecorder()
	if err != nil {
		return fmt.Errorf("failed to build recorder: %w", err)
	}
	paster, err := r.buildPaster()
	if err != nil {
		return fmt.Errorf("failed to build paster: %w", err)
	}

	orch := orchestrator.New(ctx, orchestrator.Options{
		Recorder:  recorder,
		Basic:     basic,
		Enhanced:  enhanced,
		Paster:    paster,
		Cues:      feedback.NewExecPlayer(r.cfg.Feedback, r.logger),
		Source:    hotkey.NewBusSource(busClient, r.logger),
		Notifier:  notify.Multi{notify.NewLogNotifier(r.logger), notify.NewBusNotifier(busClient)},
		Archive:   archive,
		AutoPaste: r.cfg.Paste.Enabled,
	}, r.logger)
	r.orch = orch

	// A hotkey bridge failure here is fatal: without input the daemon is
	// useless.
	if err := orch.Start(); err != nil {
		return err
	}
	defer orch.Stop()

	if err := r.startHTTP(metricsHandler); err != nil {
		return err
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("transcription_mode", r.cfg.Transcription.Mode),
		slog.String("http", fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildRecorder() (audio.Recorder, error) {
	if r.cfg.Recorder.Command == "" {
		r.logger.Info("no recorder command configured, using silence recorder")
		return audio.NewSilenceRecorder(r.cfg.Audio, r.cfg.Recorder.TempDir), nil
	}
	return audio.NewExecRecorder(r.cfg.Recorder)
}

func (r *Runtime) buildPaster() (paste.Paster, error) {
	if !r.cfg.Paste.Enabled || r.cfg.Paste.Command == "" {
		if r.cfg.Paste.Enabled {
			r.logger.Warn("paste enabled but no command configured, transcripts will only be logged")
		}
		return paste.NopPaster{}, nil
	}
	return paste.NewExecPaster(r.cfg.Paste)
}

func (r *Runtime) startHTTP(metricsHandler http.Handler) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/sessions", r.handleSessions)
	mux.HandleFunc("/sessions/current", r.handleCurrentSession)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

type sessionView struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	State        string `json:"state"`
	RawText      string `json:"raw_text,omitempty"`
	EnhancedText string `json:"enhanced_text,omitempty"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at,omitempty"`
}

func viewOf(sess session.Session) sessionView {
	view := sessionView{
		ID:           sess.ID,
		Mode:         string(sess.Mode),
		State:        string(sess.State),
		RawText:      sess.RawText,
		EnhancedText: sess.EnhancedText,
		Error:        sess.Err,
		StartedAt:    sess.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if !sess.EndedAt.IsZero() {
		view.EndedAt = sess.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	return view
}

func (r *Runtime) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := r.orch.History()
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (r *Runtime) handleCurrentSession(w http.ResponseWriter, _ *http.Request) {
	sess, ok := r.orch.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(viewOf(sess))
}
