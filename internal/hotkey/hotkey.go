package hotkey

// Trigger identifies which push-to-talk key an event belongs to.
type Trigger string

const (
	TriggerBasic    Trigger = "basic"
	TriggerEnhanced Trigger = "enhanced"
)

// Edge is the direction of a key transition.
type Edge string

const (
	EdgePress   Edge = "press"
	EdgeRelease Edge = "release"
)

// Event is one logical hotkey transition delivered to the orchestrator.
type Event struct {
	Trigger Trigger
	Edge    Edge
}

// Source delivers an asynchronous stream of hotkey events. Start must fail
// if the underlying transport cannot be initialized; that failure is fatal
// to the daemon. After Close no further events are sent.
type Source interface {
	Start(events chan<- Event) error
	Close()
}
