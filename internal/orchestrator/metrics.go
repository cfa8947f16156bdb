package orchestrator

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type sessionMetrics struct {
	started          metric.Int64Counter
	completed        metric.Int64Counter
	failed           metric.Int64Counter
	rejected         metric.Int64Counter
	pipelineDuration metric.Float64Histogram
}

func newSessionMetrics(log *slog.Logger) *sessionMetrics {
	meter := otel.Meter("github.com/piotrlinski/voice-recorder/orchestrator")
	m := &sessionMetrics{}
	var err error
	if m.started, err = meter.Int64Counter("voicerec.sessions.started",
		metric.WithDescription("Recording sessions started")); err != nil {
		log.Warn("failed to create metric", slog.String("error", err.Error()))
	}
	if m.completed, err = meter.Int64Counter("voicerec.sessions.completed",
		metric.WithDescription("Sessions that reached Completed")); err != nil {
		log.Warn("failed to create metric", slog.String("error", err.Error()))
	}
	if m.failed, err = meter.Int64Counter("voicerec.sessions.failed",
		metric.WithDescription("Sessions that ended in Error")); err != nil {
		log.Warn("failed to create metric", slog.String("error", err.Error()))
	}
	if m.rejected, err = meter.Int64Counter("voicerec.sessions.rejected",
		metric.WithDescription("Presses rejected while a session was active")); err != nil {
		log.Warn("failed to create metric", slog.String("error", err.Error()))
	}
	if m.pipelineDuration, err = meter.Float64Histogram("voicerec.pipeline.duration_ms",
		metric.WithDescription("Pipeline execution latency")); err != nil {
		log.Warn("failed to create metric", slog.String("error", err.Error()))
	}
	return m
}

func (m *sessionMetrics) addStarted(ctx context.Context, mode string) {
	if m.started != nil {
		m.started.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (m *sessionMetrics) addCompleted(ctx context.Context, mode string) {
	if m.completed != nil {
		m.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (m *sessionMetrics) addFailed(ctx context.Context, mode, kind string) {
	if m.failed != nil {
		m.failed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("kind", kind)))
	}
}

func (m *sessionMetrics) addRejected(ctx context.Context, mode string) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (m *sessionMetrics) recordPipeline(ctx context.Context, mode string, millis float64) {
	if m.pipelineDuration != nil {
		m.pipelineDuration.Record(ctx, millis, metric.WithAttributes(attribute.String("mode", mode)))
	}
}
