package greenwave

// State represents a state in the state machine
type State interface {
	ID() string
	Enter(ctx Context) error
	Exit(ctx Context) error
	IsFinal() bool
}

// ActionFunc represents an action function with error support
type ActionFunc func(ctx Context) error

// GuardFunc represents a guard condition function
type GuardFunc func(ctx Context) bool

// AtomicState is a leaf state with optional entry and exit actions
type AtomicState struct {
	id          string
	entryAction ActionFunc
	exitAction  ActionFunc
	final       bool
}

// NewAtomicState creates a new atomic state
func NewAtomicState(id string) *AtomicState {
	return &AtomicState{id: id}
}

// NewFinalState creates a new final state
func NewFinalState(id string) *AtomicState {
	return &AtomicState{id: id, final: true}
}

// ID returns the state identifier
func (s *AtomicState) ID() string {
	return s.id
}

// Enter executes the entry action
func (s *AtomicState) Enter(ctx Context) error {
	if s.entryAction == nil {
		return nil
	}
	return safeExecuteAction(s.entryAction, ctx)
}

// Exit executes the exit action
func (s *AtomicState) Exit(ctx Context) error {
	if s.exitAction == nil {
		return nil
	}
	return safeExecuteAction(s.exitAction, ctx)
}

// IsFinal returns whether this is a final state
func (s *AtomicState) IsFinal() bool {
	return s.final
}

// WithEntryAction sets the entry action for the state
func (s *AtomicState) WithEntryAction(action ActionFunc) *AtomicState {
	s.entryAction = action
	return s
}

// WithExitAction sets the exit action for the state
func (s *AtomicState) WithExitAction(action ActionFunc) *AtomicState {
	s.exitAction = action
	return s
}
