// Package sequence drives one vehicle through an ordered list of signal
// controllers.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anggasct/greenwave"
	"github.com/anggasct/greenwave/rendersync"
	"github.com/anggasct/greenwave/signal"
)

var log = logrus.WithField("module", "sequence")

// PublishFunc is called after every controller mutation. Returning
// rendersync.ErrStale ends the run as cancelled.
type PublishFunc func() error

// Runner advances controllers one at a time along the approach profile.
// A Runner holds no per-run state and may be reused.
type Runner struct {
	cfg   Config
	tiers StepTiers
}

// NewRunner validates cfg and returns a runner
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, tiers: cfg.Tiers.Sorted()}, nil
}

// Config returns the runner's pacing
func (r *Runner) Config() Config {
	return r.cfg
}

// Run approaches every controller in order. It returns nil when all of
// them were cleared and an error wrapping context.Canceled when ctx was
// cancelled or a publication went stale. Cancellation is observed before
// every pause; controllers after the current one are left untouched.
func (r *Runner) Run(ctx context.Context, controllers []*signal.Controller, publish PublishFunc) (err error) {
	if len(controllers) == 0 {
		return greenwave.NewConfigurationError("sequence", "no intersections to run")
	}
	if publish == nil {
		publish = func() error { return nil }
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sequence: run panicked: %v", rec)
		}
	}()

	for i, c := range controllers {
		log.Infof("approaching %s (%d/%d) from %.0f", c.Name(), i+1, len(controllers), c.Distance())
		if err := r.approach(ctx, c, publish); err != nil {
			return err
		}
	}
	log.Info("all intersections cleared")
	return nil
}

func (r *Runner) approach(ctx context.Context, c *signal.Controller, publish PublishFunc) error {
	d := c.Distance()
	if d <= r.cfg.Floor {
		// Already at the floor: a zero-length observation still walks the
		// controller through ACTIVE before it clears.
		if err := r.observe(ctx, c, d, publish); err != nil {
			return err
		}
	}

	for d > r.cfg.Floor && !c.Cleared() {
		d = max(d-r.tiers.StepFor(d), r.cfg.Floor)
		if err := r.observe(ctx, c, d, publish); err != nil {
			return err
		}
		if c.Cleared() {
			break
		}
		if err := wait(ctx, r.cfg.Tick); err != nil {
			return err
		}
	}

	if err := c.Settle(ctx, r.cfg.SettledDistance); err != nil {
		return err
	}
	if err := emit(publish); err != nil {
		return err
	}
	log.Debugf("%s settled", c.Name())
	return wait(ctx, r.cfg.Gap)
}

// observe feeds one distance to c and, once it is passing, holds the
// give-way signal for the dwell before clearing it
func (r *Runner) observe(ctx context.Context, c *signal.Controller, d float64, publish PublishFunc) error {
	if err := c.Observe(ctx, d); err != nil {
		return err
	}
	if err := emit(publish); err != nil {
		return err
	}
	if !c.Passing() {
		return nil
	}

	if err := wait(ctx, c.Thresholds().Dwell); err != nil {
		return err
	}
	if err := c.Pass(ctx); err != nil {
		return err
	}
	return emit(publish)
}

func emit(publish PublishFunc) error {
	err := publish()
	if errors.Is(err, rendersync.ErrStale) {
		return fmt.Errorf("%w: %w", context.Canceled, err)
	}
	return err
}

// wait pauses for d unless ctx is done first
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
