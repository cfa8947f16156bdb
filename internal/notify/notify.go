package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/piotrlinski/voice-recorder/internal/bus"
	"github.com/piotrlinski/voice-recorder/internal/protocol"
)

// Notifier receives session notices. Implementations are best-effort and
// must never block the caller for long.
type Notifier interface {
	Notify(notice protocol.SessionNotice)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(slog.String("component", "notifier"))}
}

func (n *LogNotifier) Notify(notice protocol.SessionNotice) {
	attrs := []any{
		slog.String("session_id", notice.SessionID),
		slog.String("mode", notice.Mode),
		slog.String("state", notice.State),
	}
	if notice.Error != "" {
		attrs = append(attrs, slog.String("error", notice.Error))
		n.log.Error("session notice", attrs...)
		return
	}
	n.log.Info("session notice", attrs...)
}

// BusNotifier publishes notices on the bus for external observers.
type BusNotifier struct {
	bus *bus.Client
}

func NewBusNotifier(busClient *bus.Client) *BusNotifier {
	return &BusNotifier{bus: busClient}
}

func (n *BusNotifier) Notify(notice protocol.SessionNotice) {
	data, err := json.Marshal(notice)
	if err != nil {
		n.bus.Logger().Warn("failed to marshal session notice", slog.String("error", err.Error()))
		return
	}
	if err := n.bus.Conn().Publish(protocol.SubjectSessionNotice, data); err != nil {
		n.bus.Logger().Warn("failed to publish session notice", slog.String("error", err.Error()))
	}
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(notice protocol.SessionNotice) {
	for _, n := range m {
		n.Notify(notice)
	}
}
