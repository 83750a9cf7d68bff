// Package notify carries the events the approval flow emits. Formatting and
// channel delivery live behind the Dispatcher; the core only decides when to
// notify and what the payload says.
package notify

import "time"

const (
	EventRequestCreated = "REQUEST_CREATED"
	EventApproved       = "APPROVED"
	EventRejected       = "REJECTED"
)

// Event is the structured payload handed to the dispatcher. Summary is the
// human line ("06:30 Prayer Watch Post"); Reason is set on rejections only.
type Event struct {
	Event      string    `json:"event"`
	ChangeType string    `json:"changeType"`
	ActorName  string    `json:"actorName"`
	ActorRole  string    `json:"actorRole"`
	RequestID  uint64    `json:"requestId"`
	WeekNumber int       `json:"weekNumber"`
	DayName    string    `json:"dayName"`
	Summary    string    `json:"summary"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Dispatcher accepts events for delivery. Dispatch is fire-and-forget from
// the caller's point of view: a returned error is logged by the emitter and
// never fails the mutation that produced the event.
type Dispatcher interface {
	Dispatch(event Event) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(Event) error

func (f DispatcherFunc) Dispatch(e Event) error { return f(e) }

// Discard drops every event. Useful default when no pipeline is configured.
var Discard Dispatcher = DispatcherFunc(func(Event) error { return nil })
