package greenwave

import (
	"fmt"
	"slices"
	"sync"
)

// Observer represents an entity that observes state machine lifecycle
type Observer interface {
	// OnTransition is called when a state transition occurs
	OnTransition(from string, to string, event Event, ctx Context)

	// OnStateEnter is called when entering a new state
	OnStateEnter(state string, ctx Context)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	OnStateExit(state string, ctx Context)
	OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context)
	OnEventRejected(event Event, reason string, ctx Context)
	OnError(err error, ctx Context)
	OnActionExecution(actionType string, state string, event Event, ctx Context)
	OnMachineStarted(ctx Context)
	OnMachineStopped(ctx Context)
}

// BaseObserver provides no-op implementations of every observer hook.
// Embed it to override only the hooks you care about.
type BaseObserver struct{}

func (o *BaseObserver) OnTransition(from string, to string, event Event, ctx Context) {}

func (o *BaseObserver) OnStateEnter(state string, ctx Context) {}

func (o *BaseObserver) OnStateExit(state string, ctx Context) {}

func (o *BaseObserver) OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
}

func (o *BaseObserver) OnEventRejected(event Event, reason string, ctx Context) {}

func (o *BaseObserver) OnError(err error, ctx Context) {}

func (o *BaseObserver) OnActionExecution(actionType string, state string, event Event, ctx Context) {
}

func (o *BaseObserver) OnMachineStarted(ctx Context) {}

func (o *BaseObserver) OnMachineStopped(ctx Context) {}

// ObserverManager manages a collection of observers. Observers may be
// added or removed while notifications are in flight.
type ObserverManager struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mu.Lock()
	defer om.mu.Unlock()
	if i := slices.Index(om.observers, observer); i >= 0 {
		om.observers = slices.Delete(om.observers, i, i+1)
	}
}

// Len returns the number of registered observers
func (om *ObserverManager) Len() int {
	om.mu.RLock()
	defer om.mu.RUnlock()
	return len(om.observers)
}

func (om *ObserverManager) snapshot() []Observer {
	om.mu.RLock()
	defer om.mu.RUnlock()
	return slices.Clone(om.observers)
}

// each calls fn for every observer. A panicking observer is reported
// through OnError and does not stop the remaining observers.
func (om *ObserverManager) each(hook string, ctx Context, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok {
						func() {
							defer func() { _ = recover() }()
							extObs.OnError(fmt.Errorf("observer panic in %s: %v", hook, r), ctx)
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// eachExtended is each restricted to observers implementing ExtendedObserver
func (om *ObserverManager) eachExtended(hook string, ctx Context, fn func(ExtendedObserver)) {
	om.each(hook, ctx, func(o Observer) {
		if extObs, ok := o.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyTransition notifies all observers of a state transition
func (om *ObserverManager) NotifyTransition(from string, to string, event Event, ctx Context) {
	om.each("OnTransition", ctx, func(o Observer) { o.OnTransition(from, to, event, ctx) })
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(state string, ctx Context) {
	om.each("OnStateEnter", ctx, func(o Observer) { o.OnStateEnter(state, ctx) })
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(state string, ctx Context) {
	om.eachExtended("OnStateExit", ctx, func(o ExtendedObserver) { o.OnStateExit(state, ctx) })
}

// NotifyGuardEvaluation notifies all observers of guard evaluation
func (om *ObserverManager) NotifyGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
	om.eachExtended("OnGuardEvaluation", ctx, func(o ExtendedObserver) {
		o.OnGuardEvaluation(from, to, event, result, ctx)
	})
}

// NotifyEventRejected notifies all observers of event rejection
func (om *ObserverManager) NotifyEventRejected(event Event, reason string, ctx Context) {
	om.eachExtended("OnEventRejected", ctx, func(o ExtendedObserver) { o.OnEventRejected(event, reason, ctx) })
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(err error, ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			func() {
				defer func() { _ = recover() }()
				extObs.OnError(err, ctx)
			}()
		}
	}
}

// NotifyActionExecution notifies all observers of action execution
func (om *ObserverManager) NotifyActionExecution(actionType string, state string, event Event, ctx Context) {
	om.eachExtended("OnActionExecution", ctx, func(o ExtendedObserver) {
		o.OnActionExecution(actionType, state, event, ctx)
	})
}

// NotifyMachineStarted notifies all observers that the machine has started
func (om *ObserverManager) NotifyMachineStarted(ctx Context) {
	om.eachExtended("OnMachineStarted", ctx, func(o ExtendedObserver) { o.OnMachineStarted(ctx) })
}

// NotifyMachineStopped notifies all observers that the machine has stopped
func (om *ObserverManager) NotifyMachineStopped(ctx Context) {
	om.eachExtended("OnMachineStopped", ctx, func(o ExtendedObserver) { o.OnMachineStopped(ctx) })
}
