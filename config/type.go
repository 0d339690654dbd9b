// Package config loads a corridor description from YAML.
package config

// Signal configures the hysteresis shared by every intersection
type Signal struct {
	ActivateThreshold float64 `yaml:"activate_threshold"` // give way strictly below
	PassThreshold     float64 `yaml:"pass_threshold"`     // start the dwell at or below
	DwellMs           int     `yaml:"dwell_ms"`
}

// StepTier is one band of the deceleration profile
type StepTier struct {
	Above float64 `yaml:"above"`
	Step  float64 `yaml:"step"`
}

// Sequence paces the approach
type Sequence struct {
	Floor                  float64    `yaml:"floor"`
	SettledDistance        float64    `yaml:"settled_distance"`
	TickIntervalMs         int        `yaml:"tick_interval_ms"`
	InterIntersectionGapMs int        `yaml:"inter_intersection_gap_ms"`
	StepTiers              []StepTier `yaml:"step_tiers,omitempty"`
}

// Intersection is one node of the corridor, in travel order
type Intersection struct {
	Name     string  `yaml:"name"`
	Distance float64 `yaml:"distance"`
}

// Detection configures the camera bridge
type Detection struct {
	TargetClasses       string  `yaml:"target_classes"` // comma separated
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Endpoint            string  `yaml:"endpoint,omitempty"` // empty selects the simulated detector
	TimeoutMs           int     `yaml:"timeout_ms,omitempty"`
}

// Log selects the logrus level
type Log struct {
	Level string `yaml:"level"`
}

// Config is the root of the YAML file
type Config struct {
	Signal        Signal         `yaml:"signal"`
	Sequence      Sequence       `yaml:"sequence"`
	Intersections []Intersection `yaml:"intersections"`
	Detection     Detection      `yaml:"detection"`
	Log           Log            `yaml:"log"`
}
