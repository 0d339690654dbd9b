package detection

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "detection")

// Target is the signal a bridge drives. *signal.Controller satisfies it.
type Target interface {
	Name() string
	SetGiveWay(ctx context.Context, on bool) bool
}

// Bridge maps detection frames onto a target signal. Each frame is
// judged on its own; there is no memory between calls.
type Bridge struct {
	Target    Target
	Classes   Classes
	Threshold float64
}

// NewBridge creates a bridge with the given target classes
func NewBridge(target Target, classes Classes, threshold float64) (*Bridge, error) {
	if target == nil {
		return nil, fmt.Errorf("detection: bridge needs a target")
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("detection: bridge needs at least one target class")
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, fmt.Errorf("detection: confidence threshold %g outside [0,1]", threshold)
	}
	return &Bridge{Target: target, Classes: classes, Threshold: threshold}, nil
}

// Apply evaluates one frame of records and sets the target's give-way
// flag to match. It returns the flag the target ends up with.
func (b *Bridge) Apply(ctx context.Context, records []Record) bool {
	for _, err := range Skipped(records) {
		log.WithField("intersection", b.Target.Name()).Debugf("skipping %v", err)
	}

	want := Evaluate(records, b.Classes, b.Threshold)
	got := b.Target.SetGiveWay(ctx, want)
	log.WithFields(logrus.Fields{
		"intersection": b.Target.Name(),
		"records":      len(records),
		"give_way":     got,
	}).Debug("detection frame applied")
	return got
}

// Clear returns the target to red, as if an empty frame had been seen
func (b *Bridge) Clear(ctx context.Context) bool {
	return b.Apply(ctx, nil)
}
