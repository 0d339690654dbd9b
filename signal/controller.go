package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/anggasct/greenwave"
)

var log = logrus.WithField("module", "signal")

var (
	// ErrNegativeDistance is returned when a distance below zero is observed
	ErrNegativeDistance = errors.New("signal: distance must not be negative")
	// ErrNonFiniteDistance is returned for NaN or infinite distances
	ErrNonFiniteDistance = errors.New("signal: distance must be finite")
	// ErrDistanceIncreased is returned when an observation moves the vehicle away
	ErrDistanceIncreased = errors.New("signal: distance increased during approach")
)

// Controller is one intersection's hysteretic give-way signal.
//
// Distance is written only through Observe, Settle and Reset, and the
// give-way flag only by machine transitions. A Controller is safe for
// one writer and any number of concurrent readers.
type Controller struct {
	name       string
	initial    float64
	thresholds Thresholds
	machine    greenwave.Machine

	mu       sync.RWMutex
	distance float64
}

// NewController builds a controller at its initial distance in PhaseIdle
func NewController(name string, distance float64, t Thresholds) (*Controller, error) {
	if strings.TrimSpace(name) == "" {
		return nil, greenwave.NewConfigurationError("signal", "intersection name must not be empty")
	}
	if !finite(distance) {
		return nil, greenwave.NewConfigurationError("signal",
			fmt.Sprintf("intersection %q has non-finite initial distance %g", name, distance))
	}
	if distance < 0 {
		return nil, greenwave.NewConfigurationError("signal",
			fmt.Sprintf("intersection %q has negative initial distance %g", name, distance))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	def, err := buildDefinition(t)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		name:       name,
		initial:    distance,
		thresholds: t,
		machine:    def.CreateInstance(),
		distance:   distance,
	}
	c.machine.Context().Set("intersection", name)
	if err := c.machine.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	return c, nil
}

func buildDefinition(t Thresholds) (def greenwave.MachineDefinition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = greenwave.NewConfigurationError("signal", fmt.Sprint(r))
		}
	}()
	return Definition(t), nil
}

// Name returns the intersection name
func (c *Controller) Name() string {
	return c.name
}

// InitialDistance returns the distance the controller resets to
func (c *Controller) InitialDistance() float64 {
	return c.initial
}

// Thresholds returns the controller's hysteresis configuration
func (c *Controller) Thresholds() Thresholds {
	return c.thresholds
}

// Distance returns the current distance
func (c *Controller) Distance() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.distance
}

// Phase returns the current machine state
func (c *Controller) Phase() Phase {
	return Phase(c.machine.CurrentState())
}

// GiveWay reports whether the signal currently favours the vehicle
func (c *Controller) GiveWay() bool {
	return c.Phase() == PhaseActive
}

// Cleared reports whether the vehicle has passed this intersection
func (c *Controller) Cleared() bool {
	return c.Phase() == PhaseCleared
}

// Passing reports whether the vehicle is inside the pass threshold while
// the signal gives way. The caller holds ACTIVE for Thresholds().Dwell
// and then calls Pass.
func (c *Controller) Passing() bool {
	return c.GiveWay() && c.Distance() <= c.thresholds.Pass
}

// Observe records a new distance and feeds it to the machine. Once the
// controller is cleared the update only moves the distance.
func (c *Controller) Observe(ctx context.Context, distance float64) error {
	if !finite(distance) {
		return fmt.Errorf("%s: %w", c.name, ErrNonFiniteDistance)
	}
	if distance < 0 {
		return fmt.Errorf("%s: %w", c.name, ErrNegativeDistance)
	}

	c.mu.Lock()
	if distance > c.distance {
		current := c.distance
		c.mu.Unlock()
		return fmt.Errorf("%s: %w (%g -> %g)", c.name, ErrDistanceIncreased, current, distance)
	}
	c.distance = distance
	c.mu.Unlock()

	if c.Phase() != PhaseIdle {
		return nil
	}

	result := c.machine.HandleEventWithContext(ctx, EventProximity, distance)
	if errors.Is(result.Error, context.Canceled) || errors.Is(result.Error, context.DeadlineExceeded) {
		return result.Error
	}
	return nil
}

// Pass ends the dwell and latches the controller cleared
func (c *Controller) Pass(ctx context.Context) error {
	result := c.machine.HandleEventWithContext(ctx, EventPass, nil)
	if !result.Success() {
		return fmt.Errorf("%s: pass from %s: %w", c.name, result.PreviousState, result.Error)
	}
	return nil
}

// Settle ends the approach: the distance is forced to settled and the
// controller is latched cleared whatever phase it was in.
func (c *Controller) Settle(ctx context.Context, settled float64) error {
	if !finite(settled) {
		return fmt.Errorf("%s: %w", c.name, ErrNonFiniteDistance)
	}
	if settled < 0 {
		return fmt.Errorf("%s: %w", c.name, ErrNegativeDistance)
	}

	c.mu.Lock()
	c.distance = settled
	c.mu.Unlock()

	if c.Cleared() {
		return nil
	}
	result := c.machine.HandleEventWithContext(ctx, EventSettle, settled)
	if !result.Success() {
		return fmt.Errorf("%s: settle from %s: %w", c.name, result.PreviousState, result.Error)
	}
	return nil
}

// SetGiveWay applies a detection decision without any timeline. It is a
// no-op once the controller is cleared. It returns the resulting give-way
// flag.
func (c *Controller) SetGiveWay(ctx context.Context, on bool) bool {
	event := EventRelease
	if on {
		event = EventDetect
	}
	if on != c.GiveWay() && !c.Cleared() {
		c.machine.HandleEventWithContext(ctx, event, nil)
	}
	return c.GiveWay()
}

// Reset restores the initial distance and the idle phase. It is the only
// way out of PhaseCleared.
func (c *Controller) Reset() error {
	c.mu.Lock()
	c.distance = c.initial
	c.mu.Unlock()

	if err := c.machine.Reset(); err != nil {
		return fmt.Errorf("resetting %s: %w", c.name, err)
	}
	if err := c.machine.Start(); err != nil {
		return fmt.Errorf("restarting %s: %w", c.name, err)
	}
	return nil
}

// View returns a consistent copy of the controller for presentation
func (c *Controller) View() View {
	phase := c.Phase()
	return View{
		Name:     c.name,
		Distance: c.Distance(),
		GiveWay:  phase == PhaseActive,
		Cleared:  phase == PhaseCleared,
		Phase:    phase,
	}
}

// AddObserver attaches an observer to the controller's machine. Observers
// run while the machine is locked and must not call back into the
// controller.
func (c *Controller) AddObserver(observer greenwave.Observer) {
	c.machine.AddObserver(observer)
}

// RemoveObserver detaches an observer
func (c *Controller) RemoveObserver(observer greenwave.Observer) {
	c.machine.RemoveObserver(observer)
}

// Views snapshots a list of controllers in order
func Views(controllers []*Controller) []View {
	return lo.Map(controllers, func(c *Controller, _ int) View { return c.View() })
}

// ResetAll resets every controller, returning the first failure
func ResetAll(controllers []*Controller) error {
	for _, c := range controllers {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	return nil
}
