package hotkey

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/piotrlinski/voice-recorder/internal/bus"
	"github.com/piotrlinski/voice-recorder/internal/protocol"
)

// BusSource bridges key events published on the bus by edge listeners into
// the orchestrator's event stream. It only ever sends; it never touches
// session state.
type BusSource struct {
	bus  *bus.Client
	log  *slog.Logger
	subs []*nats.Subscription
}

func NewBusSource(busClient *bus.Client, log *slog.Logger) *BusSource {
	return &BusSource{
		bus: busClient,
		log: log.With(slog.String("component", "hotkey-bridge")),
	}
}

func (s *BusSource) Start(events chan<- Event) error {
	subjects := map[string]Trigger{
		protocol.SubjectKeyBasic:    TriggerBasic,
		protocol.SubjectKeyEnhanced: TriggerEnhanced,
	}
	for subject, trigger := range subjects {
		trigger := trigger
		sub, err := s.bus.Conn().Subscribe(subject, func(msg *nats.Msg) {
			s.handleKeyMessage(trigger, msg, events)
		})
		if err != nil {
			s.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

func (s *BusSource) handleKeyMessage(trigger Trigger, msg *nats.Msg, events chan<- Event) {
	var key protocol.KeyEvent
	if err := json.Unmarshal(msg.Data, &key); err != nil {
		s.log.Warn("failed to decode key event", slog.String("error", err.Error()))
		return
	}
	edge, ok := ParseEdge(key.Edge)
	if !ok {
		s.log.Warn("unknown key edge", slog.String("edge", key.Edge))
		return
	}
	select {
	case events <- Event{Trigger: trigger, Edge: edge}:
	default:
		// The inbound queue is bounded; a full queue means the loop is
		// wedged and dropping is safer than blocking the bus callback.
		s.log.Warn("dropping key event, queue full", slog.String("trigger", string(trigger)))
	}
}

func (s *BusSource) Close() {
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.subs = nil
}

// ParseEdge maps a wire edge value onto the typed constant.
func ParseEdge(raw string) (Edge, bool) {
	switch raw {
	case protocol.EdgePress:
		return EdgePress, true
	case protocol.EdgeRelease:
		return EdgeRelease, true
	default:
		return "", false
	}
}
