package greenwave

import (
	"fmt"
	"strings"
)

// MachineBuilder provides the main entry point for building state machines
type MachineBuilder interface {
	State(id string) StateBuilder

	Build() MachineDefinition
	BuildE() (MachineDefinition, error)
}

// StateBuilder handles state configuration
type StateBuilder interface {
	To(target string) TransitionBuilder

	OnEntry(action ActionFunc) StateBuilder
	OnExit(action ActionFunc) StateBuilder
	Final() StateBuilder
	Initial() StateBuilder

	State(id string) StateBuilder
	Build() MachineDefinition
	BuildE() (MachineDefinition, error)
}

// TransitionBuilder handles transition configuration with inline actions
type TransitionBuilder interface {
	On(event string) TransitionBuilder

	When(guard GuardFunc) TransitionBuilder
	Do(action ActionFunc) TransitionBuilder

	// Multiple transitions from same state
	To(target string) TransitionBuilder

	State(id string) StateBuilder
	Build() MachineDefinition
	BuildE() (MachineDefinition, error)
}

type machineBuilderImpl struct {
	initialState string
	states       map[string]*AtomicState
	stateOrder   []string
	transitions  []*Transition
}

// NewMachine creates a new machine builder
func NewMachine() MachineBuilder {
	return &machineBuilderImpl{
		states: make(map[string]*AtomicState),
	}
}

// State declares a state, or reopens one that was declared earlier
func (mb *machineBuilderImpl) State(id string) StateBuilder {
	state, exists := mb.states[id]
	if !exists {
		state = NewAtomicState(id)
		mb.states[id] = state
		mb.stateOrder = append(mb.stateOrder, id)
	}
	return &stateBuilderImpl{machineBuilder: mb, state: state}
}

// Build finalizes the definition and panics on an invalid configuration.
// Use BuildE when the configuration comes from user input.
func (mb *machineBuilderImpl) Build() MachineDefinition {
	def, err := mb.BuildE()
	if err != nil {
		panic(fmt.Sprintf("failed to build machine: %v", err))
	}
	return def
}

// BuildE finalizes the definition
func (mb *machineBuilderImpl) BuildE() (MachineDefinition, error) {
	if err := mb.validate(); err != nil {
		return nil, err
	}

	def := &machineDefinition{
		initialState: mb.initialState,
		states:       make(map[string]State, len(mb.states)),
		stateOrder:   append([]string(nil), mb.stateOrder...),
		transitions:  make([]Transition, 0, len(mb.transitions)),
	}
	for id, state := range mb.states {
		def.states[id] = state
	}
	for _, transition := range mb.transitions {
		def.transitions = append(def.transitions, *transition)
	}
	return def, nil
}

// validate checks the machine configuration
func (mb *machineBuilderImpl) validate() error {
	if mb.initialState == "" {
		return NewConfigurationError("MachineBuilder", "no initial state defined")
	}

	for _, transition := range mb.transitions {
		if _, exists := mb.states[transition.TargetState]; !exists {
			return NewConfigurationError("MachineBuilder",
				fmt.Sprintf("target state '%s' does not exist for transition from '%s'", transition.TargetState, transition.SourceState))
		}
		if strings.TrimSpace(transition.EventName) == "" {
			return NewConfigurationError("MachineBuilder",
				fmt.Sprintf("transition '%s' -> '%s' has no event", transition.SourceState, transition.TargetState))
		}
	}

	return nil
}

func (mb *machineBuilderImpl) addTransition(source, target string) *transitionBuilderImpl {
	transition := NewTransition(source, target, "")
	mb.transitions = append(mb.transitions, transition)
	return &transitionBuilderImpl{machineBuilder: mb, transition: transition}
}

type stateBuilderImpl struct {
	machineBuilder *machineBuilderImpl
	state          *AtomicState
}

// To creates a transition to another state
func (sb *stateBuilderImpl) To(target string) TransitionBuilder {
	return sb.machineBuilder.addTransition(sb.state.ID(), target)
}

// OnEntry sets entry action for the state
func (sb *stateBuilderImpl) OnEntry(action ActionFunc) StateBuilder {
	sb.state.WithEntryAction(action)
	return sb
}

// OnExit sets exit action for the state
func (sb *stateBuilderImpl) OnExit(action ActionFunc) StateBuilder {
	sb.state.WithExitAction(action)
	return sb
}

// Final marks this state as final
func (sb *stateBuilderImpl) Final() StateBuilder {
	sb.state.final = true
	return sb
}

// Initial marks this state as the machine's initial state
func (sb *stateBuilderImpl) Initial() StateBuilder {
	sb.machineBuilder.initialState = sb.state.ID()
	return sb
}

func (sb *stateBuilderImpl) State(id string) StateBuilder {
	return sb.machineBuilder.State(id)
}

func (sb *stateBuilderImpl) Build() MachineDefinition {
	return sb.machineBuilder.Build()
}

func (sb *stateBuilderImpl) BuildE() (MachineDefinition, error) {
	return sb.machineBuilder.BuildE()
}

type transitionBuilderImpl struct {
	machineBuilder *machineBuilderImpl
	transition     *Transition
}

// On sets the event for this transition
func (tb *transitionBuilderImpl) On(event string) TransitionBuilder {
	tb.transition.EventName = event
	return tb
}

// When adds a guard condition
func (tb *transitionBuilderImpl) When(guard GuardFunc) TransitionBuilder {
	tb.transition.Guard = guard
	return tb
}

// Do sets the transition action
func (tb *transitionBuilderImpl) Do(action ActionFunc) TransitionBuilder {
	tb.transition.Action = action
	return tb
}

// To creates another transition from the same source state
func (tb *transitionBuilderImpl) To(target string) TransitionBuilder {
	return tb.machineBuilder.addTransition(tb.transition.SourceState, target)
}

func (tb *transitionBuilderImpl) State(id string) StateBuilder {
	return tb.machineBuilder.State(id)
}

func (tb *transitionBuilderImpl) Build() MachineDefinition {
	return tb.machineBuilder.Build()
}

func (tb *transitionBuilderImpl) BuildE() (MachineDefinition, error) {
	return tb.machineBuilder.BuildE()
}

// machineDefinition is an immutable, validated machine layout
type machineDefinition struct {
	initialState string
	states       map[string]State
	stateOrder   []string
	transitions  []Transition
}

// CreateInstance creates a new, stopped machine instance
func (md *machineDefinition) CreateInstance() Machine {
	sm := newStateMachine()
	sm.initialState = md.initialState
	sm.currentState = md.initialState
	sm.syncContextState()

	for id, state := range md.states {
		sm.states[id] = state
	}
	for _, transition := range md.transitions {
		sm.transitions[transition.SourceState] = append(sm.transitions[transition.SourceState], transition)
	}

	return sm
}

func (md *machineDefinition) GetInitialState() string {
	return md.initialState
}

// GetStates returns a copy of the declared states
func (md *machineDefinition) GetStates() map[string]State {
	states := make(map[string]State, len(md.states))
	for id, state := range md.states {
		states[id] = state
	}
	return states
}

// GetStateOrder returns state IDs in declaration order
func (md *machineDefinition) GetStateOrder() []string {
	return append([]string(nil), md.stateOrder...)
}

// GetTransitions returns transitions grouped by source state, each group
// in declaration order
func (md *machineDefinition) GetTransitions() map[string][]Transition {
	transitions := make(map[string][]Transition)
	for _, transition := range md.transitions {
		transitions[transition.SourceState] = append(transitions[transition.SourceState], transition)
	}
	return transitions
}
