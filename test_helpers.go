package greenwave

import (
	"slices"
	"sync"
	"testing"
)

// TestObserver records every observer callback. Tests in this package and
// in the signal and simulator packages use it to assert on lifecycle order.
type TestObserver struct {
	mutex        sync.RWMutex
	Transitions  []TransitionEvent
	StateEnters  []string
	StateExits   []string
	EventRejects []EventRejectEvent
	Errors       []error
	Actions      []ActionEvent
	Guards       []GuardEvent
	Started      int
	Stopped      int
}

type TransitionEvent struct {
	From  string
	To    string
	Event Event
}

type EventRejectEvent struct {
	Event  Event
	Reason string
}

type ActionEvent struct {
	ActionType string
	State      string
}

type GuardEvent struct {
	From   string
	To     string
	Result bool
}

// NewTestObserver creates a new test observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnTransition(from string, to string, event Event, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Transitions = append(o.Transitions, TransitionEvent{From: from, To: to, Event: event})
}

func (o *TestObserver) OnStateEnter(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateEnters = append(o.StateEnters, state)
}

func (o *TestObserver) OnStateExit(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateExits = append(o.StateExits, state)
}

func (o *TestObserver) OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Guards = append(o.Guards, GuardEvent{From: from, To: to, Result: result})
}

func (o *TestObserver) OnEventRejected(event Event, reason string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.EventRejects = append(o.EventRejects, EventRejectEvent{Event: event, Reason: reason})
}

func (o *TestObserver) OnError(err error, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) OnActionExecution(actionType string, state string, event Event, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Actions = append(o.Actions, ActionEvent{ActionType: actionType, State: state})
}

func (o *TestObserver) OnMachineStarted(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started++
}

func (o *TestObserver) OnMachineStopped(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Stopped++
}

// Reset clears all recorded events
func (o *TestObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Transitions = nil
	o.StateEnters = nil
	o.StateExits = nil
	o.EventRejects = nil
	o.Errors = nil
	o.Actions = nil
	o.Guards = nil
	o.Started = 0
	o.Stopped = 0
}

func (o *TestObserver) TransitionCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Transitions)
}

func (o *TestObserver) StateEnterCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.StateEnters)
}

func (o *TestObserver) StateExitCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.StateExits)
}

// EnteredStates returns a copy of the entered states in order
func (o *TestObserver) EnteredStates() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return slices.Clone(o.StateEnters)
}

func (o *TestObserver) LastTransition() *TransitionEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if len(o.Transitions) == 0 {
		return nil
	}
	last := o.Transitions[len(o.Transitions)-1]
	return &last
}

// CreateSimpleMachine creates a basic three-state cycle for testing
func CreateSimpleMachine() Machine {
	definition := NewMachine().
		State("idle").Initial().
		To("running").On("start").
		State("running").
		To("stopped").On("stop").
		State("stopped").
		To("idle").On("reset").
		Build()

	return definition.CreateInstance()
}

// CreateThresholdMachine creates a machine whose transitions depend on
// numeric event data, the shape every signal controller uses
func CreateThresholdMachine(limit float64) Machine {
	below := func(ctx Context) bool {
		v, ok := EventFloat(ctx)
		return ok && v < limit
	}
	above := func(ctx Context) bool {
		v, ok := EventFloat(ctx)
		return ok && v >= limit
	}
	definition := NewMachine().
		State("far").Initial().
		To("near").On("measure").When(below).
		State("near").
		To("far").On("measure").When(above).
		Build()

	return definition.CreateInstance()
}

// AssertState checks if machine is in expected state
func AssertState(t *testing.T, machine Machine, expectedState string) {
	t.Helper()
	if currentState := machine.CurrentState(); currentState != expectedState {
		t.Errorf("Expected state %s, got %s", expectedState, currentState)
	}
}

// AssertStateChanged checks if state transition occurred
func AssertStateChanged(t *testing.T, result *EventResult, expectedPrevious, expectedCurrent string) {
	t.Helper()
	if !result.StateChanged {
		t.Error("Expected state to change")
	}
	if result.PreviousState != expectedPrevious {
		t.Errorf("Expected previous state %s, got %s", expectedPrevious, result.PreviousState)
	}
	if result.CurrentState != expectedCurrent {
		t.Errorf("Expected current state %s, got %s", expectedCurrent, result.CurrentState)
	}
}

// AssertEventProcessed checks if event was processed successfully
func AssertEventProcessed(t *testing.T, result *EventResult, shouldProcess bool) {
	t.Helper()
	if result.Processed != shouldProcess {
		if shouldProcess {
			t.Errorf("Expected event to be processed, rejected with %q", result.RejectionReason)
		} else {
			t.Error("Expected event to be rejected")
		}
	}
}

// AssertObserverCalled checks if observer methods were called expected number of times
func AssertObserverCalled(t *testing.T, observer *TestObserver, transitions, enters, exits int) {
	t.Helper()
	if observer.TransitionCount() != transitions {
		t.Errorf("Expected %d transitions, got %d", transitions, observer.TransitionCount())
	}
	if observer.StateEnterCount() != enters {
		t.Errorf("Expected %d state enters, got %d", enters, observer.StateEnterCount())
	}
	if observer.StateExitCount() != exits {
		t.Errorf("Expected %d state exits, got %d", exits, observer.StateExitCount())
	}
}

// ConcurrentEventSender sends events concurrently for testing thread safety
func ConcurrentEventSender(machine Machine, eventName string, count int, done chan<- bool) {
	for i := 0; i < count; i++ {
		machine.HandleEvent(eventName, i)
	}
	done <- true
}
