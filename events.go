package nge

// Event is anything the platform layer reports to the active State.
type Event interface {
	isEvent()
}

type WindowCloseRequested struct{}

type WindowResized struct {
	Width  int
	Height int
}

type WindowFocusChanged struct {
	Focused bool
}

func (WindowCloseRequested) isEvent() {}
func (WindowResized) isEvent()        {}
func (WindowFocusChanged) isEvent()   {}

// EventQueue buffers events produced during a tick until the App hands
// them to the active State.
type EventQueue struct {
	events []Event
}

func (q *EventQueue) Push(e Event) {
	q.events = append(q.events, e)
}

func (q *EventQueue) Len() int {
	return len(q.events)
}

// Drain returns the queued events and empties the queue.
func (q *EventQueue) Drain() []Event {
	events := q.events
	q.events = nil
	return events
}
