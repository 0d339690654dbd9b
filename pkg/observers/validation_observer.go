package observers

import (
	"fmt"
	"slices"
	"sync"

	"github.com/anggasct/greenwave"
)

// ValidationObserver checks machine behaviour against a definition. Moves
// without an event, such as Reset, are not checked. Attach one observer
// to every controller of a corridor to also check that an exclusive state
// is held by at most one intersection at a time.
type ValidationObserver struct {
	greenwave.BaseObserver

	mutex              sync.RWMutex
	expectedStates     map[string]bool
	visitedStates      map[string]bool
	allowedTransitions map[string]map[string]bool
	exclusive          string
	holders            map[string]bool
	violations         []string
}

// NewValidationObserver creates an observer allowing exactly the
// transitions of def
func NewValidationObserver(def greenwave.MachineDefinition) *ValidationObserver {
	o := &ValidationObserver{
		expectedStates:     make(map[string]bool),
		visitedStates:      make(map[string]bool),
		allowedTransitions: make(map[string]map[string]bool),
		holders:            make(map[string]bool),
	}
	for _, state := range def.GetStateOrder() {
		o.expectedStates[state] = true
		o.allowedTransitions[state] = make(map[string]bool)
	}
	for from, transitions := range def.GetTransitions() {
		for _, t := range transitions {
			o.allowedTransitions[from][t.TargetState] = true
		}
	}
	return o
}

// Exclusive marks state as one that only one intersection may hold
func (o *ValidationObserver) Exclusive(state string) *ValidationObserver {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.exclusive = state
	return o
}

// OnStateEnter records the visit and checks exclusivity
func (o *ValidationObserver) OnStateEnter(state string, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates[state] = true
	if o.exclusive == "" || state != o.exclusive {
		return
	}
	name := intersection(ctx)
	for holder := range o.holders {
		if holder != name {
			o.violations = append(o.violations, fmt.Sprintf(
				"'%s' entered %s while '%s' holds it", name, state, holder))
		}
	}
	o.holders[name] = true
}

// OnStateExit releases an exclusive state
func (o *ValidationObserver) OnStateExit(state string, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if state == o.exclusive {
		delete(o.holders, intersection(ctx))
	}
}

// OnTransition validates transitions
func (o *ValidationObserver) OnTransition(from string, to string, event greenwave.Event, ctx greenwave.Context) {
	if event == nil {
		return
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.allowedTransitions[from][to] {
		o.violations = append(o.violations, fmt.Sprintf(
			"invalid transition from '%s' to '%s' on event '%s'", from, to, event.GetName()))
	}
}

// OnError records errors as violations
func (o *ValidationObserver) OnError(err error, ctx greenwave.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Sprintf("error occurred: %v", err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return slices.Clone(o.violations)
}

// GetUnvisitedStates returns declared states that were never entered
func (o *ValidationObserver) GetUnvisitedStates() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []string
	for state := range o.expectedStates {
		if !o.visitedStates[state] {
			unvisited = append(unvisited, state)
		}
	}
	slices.Sort(unvisited)
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates = make(map[string]bool)
	o.holders = make(map[string]bool)
	o.violations = nil
}
