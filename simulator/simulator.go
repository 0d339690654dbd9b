// Package simulator owns the lifecycle of corridor runs. It starts one
// worker goroutine per run, publishes snapshots for presentation and
// serialises the Start, Stop and Reset controls.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anggasct/greenwave"
	"github.com/anggasct/greenwave/rendersync"
	"github.com/anggasct/greenwave/sequence"
	"github.com/anggasct/greenwave/signal"
)

var log = logrus.WithField("module", "simulator")

var (
	// ErrRunInProgress is returned by Start while a worker is alive
	ErrRunInProgress = errors.New("simulator: run in progress")
	// ErrResetRequired is returned by Start after a finished or stopped run
	ErrResetRequired = errors.New("simulator: reset required before the next run")
)

// RunState is the run-state token
type RunState int32

const (
	NotStarted RunState = iota
	Running
	Cancelling
	Done
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("RunState(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is one immutable frame of the corridor
type Snapshot struct {
	RunID         uuid.UUID     `json:"run_id"`
	Seq           uint64        `json:"seq"`
	State         RunState      `json:"state"`
	Intersections []signal.View `json:"intersections"`
	At            time.Time     `json:"at"`
}

// Simulator drives a fixed corridor of controllers. All methods are safe
// for concurrent use; during a run the worker is the only writer of the
// controllers.
type Simulator struct {
	controllers []*signal.Controller
	runner      *sequence.Runner
	channel     *rendersync.Channel[Snapshot]

	state atomic.Int32
	seq   atomic.Uint64

	// ctl serialises control operations and guards the fields below
	ctl          sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	runID        uuid.UUID
	resetPending bool
	err          error
}

// New creates a simulator in NotStarted and publishes the initial snapshot
func New(controllers []*signal.Controller, runner *sequence.Runner) (*Simulator, error) {
	if len(controllers) == 0 {
		return nil, greenwave.NewConfigurationError("simulator", "no intersections configured")
	}
	if runner == nil {
		return nil, greenwave.NewConfigurationError("simulator", "no sequence runner configured")
	}

	s := &Simulator{
		controllers: controllers,
		runner:      runner,
		channel:     rendersync.New[Snapshot](),
	}
	s.channel.Publish(s.snapshot(uuid.Nil))
	return s, nil
}

// Controllers returns the corridor in order
func (s *Simulator) Controllers() []*signal.Controller {
	return s.controllers
}

// State returns the current run-state token
func (s *Simulator) State() RunState {
	return RunState(s.state.Load())
}

func (s *Simulator) setState(state RunState) {
	s.state.Store(int32(state))
}

// IsRunning reports whether a worker goroutine is alive
func (s *Simulator) IsRunning() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.done != nil
}

// Err returns the error that ended the last run, if it failed
func (s *Simulator) Err() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.err
}

// Start launches a run. The run ends when it completes, when ctx is done
// or on Stop and Reset.
func (s *Simulator) Start(ctx context.Context) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.done != nil {
		return ErrRunInProgress
	}
	if s.State() != NotStarted {
		return ErrResetRequired
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.runID = uuid.New()
	s.err = nil
	s.seq.Store(0)
	s.setState(Running)

	log.WithField("run", s.runID).Infof("starting run over %d intersections", len(s.controllers))
	go s.work(runCtx, s.channel.Publisher(), s.runID, s.done)
	return nil
}

// Stop requests cancellation of the current run. The state stays
// Cancelling until Reset.
func (s *Simulator) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.done == nil || s.State() != Running {
		return
	}
	log.WithField("run", s.runID).Info("stop requested")
	s.setState(Cancelling)
	s.cancel()
}

// Reset returns every controller to its initial state. While a run is in
// flight it cancels the worker, ends the render epoch and leaves the
// controller reset to the worker on its way out; it never waits for the
// worker.
func (s *Simulator) Reset() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.channel.Reset()
	if s.done != nil {
		log.WithField("run", s.runID).Info("reset requested during run")
		s.resetPending = true
		s.setState(Cancelling)
		s.cancel()
		return nil
	}
	return s.applyReset()
}

// applyReset must be called with s.ctl held and no worker alive
func (s *Simulator) applyReset() error {
	s.resetPending = false
	s.err = nil
	if err := signal.ResetAll(s.controllers); err != nil {
		s.err = err
		s.setState(Done)
		return err
	}
	s.setState(NotStarted)
	s.channel.Publish(s.snapshot(uuid.Nil))
	return nil
}

// Wait blocks until the current worker exits or ctx is done
func (s *Simulator) Wait(ctx context.Context) error {
	s.ctl.Lock()
	done := s.done
	s.ctl.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the latest published frame. Each caller gets its own
// copy of the intersections.
func (s *Simulator) Snapshot() Snapshot {
	if snap, _, ok := s.channel.Latest(); ok {
		snap.Intersections = slices.Clone(snap.Intersections)
		return snap
	}
	s.ctl.Lock()
	runID := s.runID
	s.ctl.Unlock()
	return s.snapshot(runID)
}

// Updates notifies after one or more snapshots were published
func (s *Simulator) Updates() <-chan struct{} {
	return s.channel.Updates()
}

// Stats returns the render channel counters
func (s *Simulator) Stats() rendersync.Stats {
	return s.channel.Stats()
}

func (s *Simulator) snapshot(runID uuid.UUID) Snapshot {
	return Snapshot{
		RunID:         runID,
		Seq:           s.seq.Load(),
		State:         s.State(),
		Intersections: signal.Views(s.controllers),
		At:            time.Now(),
	}
}

func (s *Simulator) work(ctx context.Context, pub *rendersync.Publisher[Snapshot], runID uuid.UUID, done chan struct{}) {
	defer close(done)
	logger := log.WithField("run", runID)

	publish := func() error {
		s.seq.Add(1)
		return pub.Publish(s.snapshot(runID))
	}
	err := s.runner.Run(ctx, s.controllers, publish)

	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.cancel()
	s.cancel = nil
	s.done = nil

	if s.resetPending {
		logger.Info("run cancelled by reset")
		if err := s.applyReset(); err != nil {
			logger.WithError(err).Error("reset failed")
		}
		return
	}

	switch {
	case err == nil:
		logger.Info("run completed")
		s.setState(Done)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Info("run cancelled")
		s.setState(Cancelling)
	default:
		logger.WithError(err).Error("run failed")
		s.err = err
		s.setState(Done)
	}
	// final frame carries the end state; a stale publisher drops it
	_ = pub.Publish(s.snapshot(runID))
}
