package greenwave

import (
	"context"
	"maps"
	"sync"
)

// Context is handed to guards, actions and observers. It embeds the
// context.Context the machine was started with, holds per-machine values
// such as the intersection name, and exposes the transition in flight.
type Context interface {
	context.Context

	Get(key string) (any, bool)
	Set(key string, value any)
	GetAll() map[string]any

	GetMachine() Machine
	GetCurrentState() string
	GetSourceState() string
	GetTargetState() string

	GetCurrentEvent() Event
	GetEventName() string
	GetEventData() any
}

// transition is the edge the machine is currently taking.
type transition struct {
	source, target string
	event          Event
}

// StateMachineContext is the Context every machine owns.
type StateMachineContext struct {
	context.Context

	mu      sync.RWMutex
	values  map[string]any
	machine Machine
	current string
	edge    transition
}

func NewContext(parent context.Context, machine Machine) Context {
	return &StateMachineContext{
		Context: parent,
		values:  make(map[string]any),
		machine: machine,
	}
}

func (ctx *StateMachineContext) Get(key string) (any, bool) {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	v, ok := ctx.values[key]
	return v, ok
}

func (ctx *StateMachineContext) Set(key string, value any) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.values[key] = value
}

// GetAll returns a copy.
func (ctx *StateMachineContext) GetAll() map[string]any {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return maps.Clone(ctx.values)
}

func (ctx *StateMachineContext) GetMachine() Machine {
	return ctx.machine
}

func (ctx *StateMachineContext) GetCurrentState() string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.current
}

func (ctx *StateMachineContext) GetSourceState() string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.edge.source
}

func (ctx *StateMachineContext) GetTargetState() string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.edge.target
}

func (ctx *StateMachineContext) GetCurrentEvent() Event {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.edge.event
}

// GetEventName is empty when no event has been handled yet.
func (ctx *StateMachineContext) GetEventName() string {
	if event := ctx.GetCurrentEvent(); event != nil {
		return event.GetName()
	}
	return ""
}

func (ctx *StateMachineContext) GetEventData() any {
	if event := ctx.GetCurrentEvent(); event != nil {
		return event.GetData()
	}
	return nil
}

// EventFloat reads the current event payload as a distance. Integer
// payloads widen; anything else reports false.
func EventFloat(ctx Context) (float64, bool) {
	switch v := ctx.GetEventData().(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func (ctx *StateMachineContext) beginTransition(source, target string, event Event) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.edge = transition{source: source, target: target, event: event}
}

func (ctx *StateMachineContext) setCurrentState(state string) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.current = state
}

func (ctx *StateMachineContext) setCurrentEvent(event Event) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.edge.event = event
}
