package hotkey

import "sync"

// ChannelSource feeds events from process memory, used by tests and by
// in-process key listeners.
type ChannelSource struct {
	mu     sync.Mutex
	events chan<- Event
	closed bool
}

func NewChannelSource() *ChannelSource {
	return &ChannelSource{}
}

func (s *ChannelSource) Start(events chan<- Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	return nil
}

// Send delivers an event to the orchestrator. Events sent before Start,
// after Close, or while the queue is full are dropped, matching the bus
// bridge's non-blocking delivery.
func (s *ChannelSource) Send(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil || s.closed {
		return
	}
	select {
	case s.events <- evt:
	default:
	}
}

func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
