package greenwave

import (
	"time"

	"github.com/google/uuid"
)

// Event is a named trigger with an optional payload. Signal controllers
// send distances as proximity and settle payloads.
type Event interface {
	GetID() string
	GetName() string
	GetData() any
	GetTimestamp() time.Time
}

// BaseEvent is the Event every machine method constructs.
type BaseEvent struct {
	id   string
	name string
	data any
	at   time.Time
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(name string, data any) Event {
	return &BaseEvent{id: uuid.NewString(), name: name, data: data, at: time.Now()}
}

func (e *BaseEvent) GetID() string { return e.id }
func (e *BaseEvent) GetName() string { return e.name }
func (e *BaseEvent) GetData() any { return e.data }
func (e *BaseEvent) GetTimestamp() time.Time { return e.at }

// EventResult reports what HandleEvent did with one event. A rejected
// event leaves Processed false and names the reason; a failed one
// carries Error.
type EventResult struct {
	Processed       bool
	StateChanged    bool
	PreviousState   string
	CurrentState    string
	Error           error
	RejectionReason string
}

func NewEventResult(processed, stateChanged bool, prevState, currentState string) *EventResult {
	return &EventResult{
		Processed:     processed,
		StateChanged:  stateChanged,
		PreviousState: prevState,
		CurrentState:  currentState,
	}
}

func (r *EventResult) WithError(err error) *EventResult {
	r.Error = err
	return r
}

// WithRejection marks the event unprocessed.
func (r *EventResult) WithRejection(reason string) *EventResult {
	r.RejectionReason = reason
	r.Processed = false
	return r
}

func (r *EventResult) Success() bool {
	return r.Processed && r.Error == nil
}
