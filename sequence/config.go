package sequence

import (
	"fmt"
	"math"
	"time"

	"github.com/anggasct/greenwave"
)

// Config paces one pass of the vehicle
type Config struct {
	// Floor is the closest distance the approach drives to
	Floor float64
	// SettledDistance is forced onto a controller once its approach ends
	SettledDistance float64
	// Tick is the pause after every step
	Tick time.Duration
	// Gap is the pause between two intersections
	Gap   time.Duration
	Tiers StepTiers
}

// DefaultConfig returns floor 5, settled distance 8, 120ms ticks and a
// 600ms gap with the default tiers
func DefaultConfig() Config {
	return Config{
		Floor:           5,
		SettledDistance: 8,
		Tick:            120 * time.Millisecond,
		Gap:             600 * time.Millisecond,
		Tiers:           DefaultStepTiers(),
	}
}

// Validate returns a ConfigurationError for an unusable pacing
func (c Config) Validate() error {
	switch {
	case !finite(c.Floor) || !finite(c.SettledDistance):
		return greenwave.NewConfigurationError("sequence",
			fmt.Sprintf("floor and settled distance must be finite, got %g and %g", c.Floor, c.SettledDistance))
	case c.Floor < 0:
		return greenwave.NewConfigurationError("sequence", fmt.Sprintf("floor must not be negative, got %g", c.Floor))
	case c.SettledDistance < 0:
		return greenwave.NewConfigurationError("sequence",
			fmt.Sprintf("settled distance must not be negative, got %g", c.SettledDistance))
	case c.Tick < 0 || c.Gap < 0:
		return greenwave.NewConfigurationError("sequence", "tick and gap must not be negative")
	}
	return c.Tiers.Validate(c.Floor)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
