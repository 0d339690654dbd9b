package greenwave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Machine represents a state machine instance
type Machine interface {
	Start() error
	Stop() error
	Reset() error
	Started() bool

	CurrentState() string
	SetState(state string) error
	IsInState(stateID string) bool

	HandleEvent(eventName string, eventData any) *EventResult
	HandleEventWithContext(ctx context.Context, eventName string, eventData any) *EventResult

	AddObserver(observer Observer)
	RemoveObserver(observer Observer)

	Context() Context

	MarshalJSON() ([]byte, error)
}

// MachineDefinition represents the configuration of a state machine
type MachineDefinition interface {
	CreateInstance() Machine

	GetInitialState() string
	GetStates() map[string]State
	GetStateOrder() []string
	GetTransitions() map[string][]Transition
}

// MachineState represents the lifecycle status of the machine
type MachineState int

const (
	// Machine is stopped and not processing events
	MachineStateStopped MachineState = iota
	// Machine is running and processing events
	MachineStateStarted
)

func (s MachineState) String() string {
	switch s {
	case MachineStateStopped:
		return "stopped"
	case MachineStateStarted:
		return "started"
	default:
		return fmt.Sprintf("MachineState(%d)", int(s))
	}
}

// StateMachine implements the Machine interface. All methods are safe
// for concurrent use; events are processed one at a time.
type StateMachine struct {
	currentState string
	initialState string
	states       map[string]State
	transitions  map[string][]Transition
	context      Context
	observers    *ObserverManager
	machineState MachineState
	mutex        sync.RWMutex
}

// newStateMachine creates a new state machine instance
func newStateMachine() *StateMachine {
	sm := &StateMachine{
		states:       make(map[string]State),
		transitions:  make(map[string][]Transition),
		observers:    NewObserverManager(),
		machineState: MachineStateStopped,
	}

	sm.context = NewContext(context.Background(), sm)
	return sm
}

// safeEvaluateGuard safely evaluates a guard function with panic recovery
func safeEvaluateGuard(guard GuardFunc, ctx Context) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	return guard(ctx), nil
}

// safeExecuteAction safely executes an action function with panic recovery
func safeExecuteAction(action ActionFunc, ctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	return action(ctx)
}

// Start enters the initial state and begins accepting events
func (sm *StateMachine) Start() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState == MachineStateStarted {
		return NewMachineError(ErrCodeInvalidState, "Start", "machine is already started")
	}

	if sm.initialState == "" {
		return NewConfigurationError("StateMachine", "no initial state defined")
	}

	initial, exists := sm.states[sm.initialState]
	if !exists {
		return NewConfigurationError("StateMachine", fmt.Sprintf("initial state '%s' does not exist", sm.initialState))
	}

	sm.machineState = MachineStateStarted
	sm.currentState = sm.initialState
	sm.syncContextState()

	sm.runStateAction("entry", initial, initial.Enter)
	sm.observers.NotifyStateEnter(sm.currentState, sm.context)
	sm.observers.NotifyMachineStarted(sm.context)

	return nil
}

// Stop stops the state machine
func (sm *StateMachine) Stop() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewMachineNotStartedError("Stop")
	}

	if sm.currentState != "" {
		sm.observers.NotifyStateExit(sm.currentState, sm.context)
	}
	sm.observers.NotifyMachineStopped(sm.context)

	sm.machineState = MachineStateStopped
	return nil
}

// Reset moves the machine back to its initial state and stops it.
// Call Start to resume event processing.
func (sm *StateMachine) Reset() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	previousState := sm.currentState
	sm.currentState = sm.initialState
	sm.machineState = MachineStateStopped
	sm.syncContextState()

	if previousState != sm.currentState {
		if previousState != "" {
			sm.observers.NotifyStateExit(previousState, sm.context)
		}
		if sm.currentState != "" {
			sm.observers.NotifyStateEnter(sm.currentState, sm.context)
			sm.observers.NotifyTransition(previousState, sm.currentState, nil, sm.context)
		}
	}

	return nil
}

// Started reports whether the machine is accepting events
func (sm *StateMachine) Started() bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.machineState == MachineStateStarted
}

// CurrentState returns the current state
func (sm *StateMachine) CurrentState() string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// IsInState reports whether stateID is the current state
func (sm *StateMachine) IsInState(stateID string) bool {
	return sm.CurrentState() == stateID
}

// SetState forces the current state without running transition actions
func (sm *StateMachine) SetState(state string) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.states[state]; !exists {
		return NewStateNotFoundError(state)
	}

	previousState := sm.currentState
	sm.currentState = state
	sm.syncContextState()

	if previousState != "" && previousState != state {
		sm.observers.NotifyStateExit(previousState, sm.context)
	}

	sm.observers.NotifyStateEnter(state, sm.context)

	if previousState != state {
		sm.observers.NotifyTransition(previousState, state, nil, sm.context)
	}

	return nil
}

// HandleEvent handles an event synchronously
func (sm *StateMachine) HandleEvent(eventName string, eventData any) *EventResult {
	return sm.HandleEventWithContext(context.Background(), eventName, eventData)
}

// HandleEventWithContext handles an event synchronously. An event
// arriving on an already cancelled ctx is rejected without evaluating
// any guard.
func (sm *StateMachine) HandleEventWithContext(ctx context.Context, eventName string, eventData any) *EventResult {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection("machine is not started").
			WithError(NewMachineNotStartedError("HandleEvent"))
	}

	event := NewEvent(eventName, eventData)

	if strings.TrimSpace(eventName) == "" {
		reason := "event name cannot be empty"
		sm.observers.NotifyEventRejected(event, reason, sm.context)
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection(reason).
			WithError(errors.New(reason))
	}

	if err := ctx.Err(); err != nil {
		sm.observers.NotifyEventRejected(event, err.Error(), sm.context)
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection(err.Error()).
			WithError(err)
	}

	if smCtx, ok := sm.context.(*StateMachineContext); ok {
		smCtx.setCurrentEvent(event)
	}

	transition := sm.findMatchingTransition(event)
	if transition == nil {
		err := NewNoTransitionError(sm.currentState, eventName)
		sm.observers.NotifyEventRejected(event, err.Reason, sm.context)
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection(err.Reason).
			WithError(err)
	}

	previousState := sm.currentState
	targetState := transition.TargetState

	if smCtx, ok := sm.context.(*StateMachineContext); ok {
		smCtx.beginTransition(previousState, targetState, event)
	}

	// A failing transition action aborts the transition before any state changes
	if transition.Action != nil {
		sm.observers.NotifyActionExecution("transition", previousState, event, sm.context)
		if err := safeExecuteAction(transition.Action, sm.context); err != nil {
			actionErr := NewActionError("transition", previousState, err)
			sm.observers.NotifyError(actionErr, sm.context)
			sm.observers.NotifyEventRejected(event, actionErr.Error(), sm.context)
			return NewEventResult(false, false, previousState, previousState).
				WithError(actionErr)
		}
	}

	if source, ok := sm.states[previousState]; ok {
		sm.runStateAction("exit", source, source.Exit)
	}

	sm.currentState = targetState
	sm.syncContextState()

	if target, ok := sm.states[targetState]; ok {
		sm.runStateAction("entry", target, target.Enter)
	}

	sm.observers.NotifyStateExit(previousState, sm.context)
	sm.observers.NotifyTransition(previousState, targetState, event, sm.context)
	sm.observers.NotifyStateEnter(targetState, sm.context)

	// Self-transitions count as a change since exit and entry actions ran
	return NewEventResult(true, true, previousState, targetState)
}

// findMatchingTransition returns the first transition out of the current
// state that listens for the event and whose guard passes. Guards are
// evaluated in declaration order; a panicking guard counts as false.
func (sm *StateMachine) findMatchingTransition(event Event) *Transition {
	for i := range sm.transitions[sm.currentState] {
		transition := &sm.transitions[sm.currentState][i]
		if !transition.matches(event.GetName()) {
			continue
		}
		if transition.Guard == nil {
			return transition
		}
		passed, err := safeEvaluateGuard(transition.Guard, sm.context)
		if err != nil {
			sm.observers.NotifyError(err, sm.context)
		}
		sm.observers.NotifyGuardEvaluation(transition.SourceState, transition.TargetState, event, passed, sm.context)
		if passed {
			return transition
		}
	}
	return nil
}

// runStateAction runs an entry or exit action. Its failure is reported to
// observers but never undoes the transition.
func (sm *StateMachine) runStateAction(kind string, state State, action func(Context) error) {
	sm.observers.NotifyActionExecution(kind, state.ID(), sm.context.GetCurrentEvent(), sm.context)
	if err := action(sm.context); err != nil {
		sm.observers.NotifyError(NewActionError(kind, state.ID(), err), sm.context)
	}
}

func (sm *StateMachine) syncContextState() {
	if smCtx, ok := sm.context.(*StateMachineContext); ok {
		smCtx.setCurrentState(sm.currentState)
	}
}

// AddObserver adds an observer to the machine
func (sm *StateMachine) AddObserver(observer Observer) {
	sm.observers.AddObserver(observer)
}

// RemoveObserver removes an observer from the machine
func (sm *StateMachine) RemoveObserver(observer Observer) {
	sm.observers.RemoveObserver(observer)
}

// Context returns the machine's context
func (sm *StateMachine) Context() Context {
	return sm.context
}

// MarshalJSON serializes the machine state to JSON
func (sm *StateMachine) MarshalJSON() ([]byte, error) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	data := map[string]any{
		"currentState": sm.currentState,
		"initialState": sm.initialState,
		"machineState": sm.machineState.String(),
		"contextData":  sm.context.GetAll(),
	}

	return json.Marshal(data)
}
