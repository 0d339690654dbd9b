package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/anggasct/greenwave"
)

// Phase is the controller's position in one pass of the vehicle
type Phase string

const (
	// PhaseIdle: vehicle not yet close enough, default signal
	PhaseIdle Phase = "idle"
	// PhaseActive: signal gives way to the approaching vehicle
	PhaseActive Phase = "active"
	// PhaseCleared: vehicle has passed, default signal latched until Reset
	PhaseCleared Phase = "cleared"
)

// Events understood by the controller machine
const (
	EventProximity = "proximity"
	EventPass      = "pass"
	EventSettle    = "settle"
	EventDetect    = "detect"
	EventRelease   = "release"
)

// Light is the presentation colour of a signal
type Light string

const (
	Red   Light = "RED"
	Green Light = "GREEN"
)

// Thresholds configures the hysteresis of every controller in a corridor
type Thresholds struct {
	// Activate gives way once distance drops strictly below it
	Activate float64
	// Pass starts the dwell once distance is at or below it
	Pass float64
	// Dwell is how long the signal stays ACTIVE after the pass threshold
	Dwell time.Duration
}

// DefaultThresholds returns activate 20, pass 10 and a 600ms dwell
func DefaultThresholds() Thresholds {
	return Thresholds{
		Activate: 20,
		Pass:     10,
		Dwell:    600 * time.Millisecond,
	}
}

// Validate rejects thresholds under which the machine cannot settle in ACTIVE
func (t Thresholds) Validate() error {
	switch {
	case !finite(t.Activate) || !finite(t.Pass):
		return greenwave.NewConfigurationError("signal",
			fmt.Sprintf("thresholds must be finite, got activate %g pass %g", t.Activate, t.Pass))
	case t.Activate <= 0:
		return greenwave.NewConfigurationError("signal", fmt.Sprintf("activate threshold must be positive, got %g", t.Activate))
	case t.Pass < 0:
		return greenwave.NewConfigurationError("signal", fmt.Sprintf("pass threshold must not be negative, got %g", t.Pass))
	case t.Pass >= t.Activate:
		return greenwave.NewConfigurationError("signal",
			fmt.Sprintf("pass threshold %g must be below activate threshold %g", t.Pass, t.Activate))
	case t.Dwell < 0:
		return greenwave.NewConfigurationError("signal", fmt.Sprintf("dwell must not be negative, got %s", t.Dwell))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// View is an immutable copy of a controller handed to presentation
type View struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	GiveWay  bool    `json:"give_way"`
	Cleared  bool    `json:"cleared"`
	Phase    Phase   `json:"phase"`
}

// Light maps the give-way flag to the signal colour
func (v View) Light() Light {
	if v.GiveWay {
		return Green
	}
	return Red
}

func (v View) String() string {
	return fmt.Sprintf("%s %s %.1f", v.Name, v.Light(), v.Distance)
}
