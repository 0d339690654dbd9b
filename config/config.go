package config

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/anggasct/greenwave"
	"github.com/anggasct/greenwave/detection"
	"github.com/anggasct/greenwave/sequence"
	"github.com/anggasct/greenwave/signal"
)

var logLevels = map[string]logrus.Level{
	"trace":    logrus.TraceLevel,
	"debug":    logrus.DebugLevel,
	"info":     logrus.InfoLevel,
	"warn":     logrus.WarnLevel,
	"error":    logrus.ErrorLevel,
	"critical": logrus.FatalLevel,
	"off":      logrus.PanicLevel,
}

// Default returns the three-node corridor with the stock pacing
func Default() Config {
	thresholds := signal.DefaultThresholds()
	seq := sequence.DefaultConfig()
	return Config{
		Signal: Signal{
			ActivateThreshold: thresholds.Activate,
			PassThreshold:     thresholds.Pass,
			DwellMs:           int(thresholds.Dwell / time.Millisecond),
		},
		Sequence: Sequence{
			Floor:                  seq.Floor,
			SettledDistance:        seq.SettledDistance,
			TickIntervalMs:         int(seq.Tick / time.Millisecond),
			InterIntersectionGapMs: int(seq.Gap / time.Millisecond),
			StepTiers: lo.Map(seq.Tiers, func(t sequence.Tier, _ int) StepTier {
				return StepTier{Above: t.Above, Step: t.Step}
			}),
		},
		Intersections: []Intersection{
			{Name: "Node 1", Distance: 120},
			{Name: "Node 2", Distance: 220},
			{Name: "Node 3", Distance: 320},
		},
		Detection: Detection{
			TargetClasses:       "ambulance",
			ConfidenceThreshold: detection.DefaultConfidenceThreshold,
			TimeoutMs:           int(detection.ProbeTimeout / time.Millisecond),
		},
		Log: Log{Level: "info"},
	}
}

// Parse decodes data on top of Default and validates the result. Unknown
// keys are an error.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses the file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes c as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every section
func (c Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("config signal: %w", err)
	}
	if err := c.SequenceConfig().Validate(); err != nil {
		return fmt.Errorf("config sequence: %w", err)
	}
	if len(c.Intersections) == 0 {
		return greenwave.NewConfigurationError("config", "no intersections")
	}
	names := make([]string, 0, len(c.Intersections))
	for i, n := range c.Intersections {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			return greenwave.NewConfigurationError("config", fmt.Sprintf("intersection %d has no name", i))
		}
		if math.IsNaN(n.Distance) || math.IsInf(n.Distance, 0) {
			return greenwave.NewConfigurationError("config", fmt.Sprintf("intersection %q has non-finite distance %g", name, n.Distance))
		}
		if n.Distance < 0 {
			return greenwave.NewConfigurationError("config", fmt.Sprintf("intersection %q has negative distance %g", name, n.Distance))
		}
		if slices.Contains(names, name) {
			return greenwave.NewConfigurationError("config", fmt.Sprintf("intersection %q is listed twice", name))
		}
		names = append(names, name)
	}
	if len(c.Classes()) == 0 {
		return greenwave.NewConfigurationError("config", "detection needs at least one target class")
	}
	if t := c.Detection.ConfidenceThreshold; !(t >= 0 && t <= 1) {
		return greenwave.NewConfigurationError("config", fmt.Sprintf("confidence threshold %g outside [0,1]", t))
	}
	if c.Detection.TimeoutMs < 0 {
		return greenwave.NewConfigurationError("config", "detection timeout must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Thresholds converts the signal section
func (c Config) Thresholds() signal.Thresholds {
	return signal.Thresholds{
		Activate: c.Signal.ActivateThreshold,
		Pass:     c.Signal.PassThreshold,
		Dwell:    greenwave.Milliseconds(c.Signal.DwellMs),
	}
}

// SequenceConfig converts the sequence section
func (c Config) SequenceConfig() sequence.Config {
	return sequence.Config{
		Floor:           c.Sequence.Floor,
		SettledDistance: c.Sequence.SettledDistance,
		Tick:            greenwave.Milliseconds(c.Sequence.TickIntervalMs),
		Gap:             greenwave.Milliseconds(c.Sequence.InterIntersectionGapMs),
		Tiers: lo.Map(c.Sequence.StepTiers, func(t StepTier, _ int) sequence.Tier {
			return sequence.Tier{Above: t.Above, Step: t.Step}
		}),
	}
}

// DetectionTimeout bounds the detector health check and each request
func (c Config) DetectionTimeout() time.Duration {
	return greenwave.Milliseconds(c.Detection.TimeoutMs)
}

// Classes returns the normalised target classes
func (c Config) Classes() detection.Classes {
	return detection.ParseClasses(c.Detection.TargetClasses)
}

// LogLevel resolves the configured level name
func (c Config) LogLevel() (logrus.Level, error) {
	level, ok := logLevels[strings.ToLower(c.Log.Level)]
	if !ok {
		return 0, greenwave.NewConfigurationError("config",
			fmt.Sprintf("log level %q must be one of %v", c.Log.Level, lo.Keys(logLevels)))
	}
	return level, nil
}

// Controllers builds one controller per intersection, in order
func (c Config) Controllers() ([]*signal.Controller, error) {
	thresholds := c.Thresholds()
	controllers := make([]*signal.Controller, 0, len(c.Intersections))
	for _, n := range c.Intersections {
		controller, err := signal.NewController(strings.TrimSpace(n.Name), n.Distance, thresholds)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, controller)
	}
	return controllers, nil
}

// Runner builds the sequence runner
func (c Config) Runner() (*sequence.Runner, error) {
	return sequence.NewRunner(c.SequenceConfig())
}
