package scenario

import "time"

// Signal names understood by the vitals generator.
const (
	SignalBPM         = "bpm"
	SignalHRV         = "hrv"
	SignalSpO2        = "spo2"
	SignalRespiration = "respiration"
	// SignalContact is "on" or "off"; off simulates a finger lifted from the
	// sensor and produces a zero heart rate.
	SignalContact = "contact"
)

// Scenario defines a complete scenario with phases and signal configurations
type Scenario struct {
	Name            string                   `yaml:"name"`
	Description     string                   `yaml:"description"`
	Duration        string                   `yaml:"duration"` // e.g., "8m", "unlimited"
	DefaultInterval string                   `yaml:"default_interval"`
	Signals         map[string]*SignalConfig `yaml:"signals"`
	Phases          []Phase                  `yaml:"phases"`
}

// Phase represents a time-bounded stage of a scenario with specific overrides
type Phase struct {
	Name      string                   `yaml:"name"`
	Duration  string                   `yaml:"duration"`
	Overrides map[string]*SignalConfig `yaml:"overrides,omitempty"`
}

// SignalConfig defines the configuration for a signal
type SignalConfig struct {
	Baseline float64 `yaml:"baseline,omitempty"`
	Noise    float64 `yaml:"noise,omitempty"`
	Min      float64 `yaml:"min,omitempty"`
	Max      float64 `yaml:"max,omitempty"`
	Unit     string  `yaml:"unit,omitempty"`

	// Override modifiers
	Add      float64 `yaml:"add,omitempty"`
	Multiply float64 `yaml:"multiply,omitempty"`
	Value    string  `yaml:"value,omitempty"` // For discrete values like "on"/"off"
}

// ParseDuration parses duration strings like "8m", "30s", "unlimited"
func ParseDuration(s string) (time.Duration, bool) {
	if s == "unlimited" || s == "" {
		return 0, true // 0 means unlimited
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, false
}

// Interval returns the scenario's posting interval, or def when unset or
// unparseable.
func (s *Scenario) Interval(def time.Duration) time.Duration {
	d, err := time.ParseDuration(s.DefaultInterval)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetEffectiveConfig returns the signal config for a given signal name at a specific time
func (s *Scenario) GetEffectiveConfig(signalName string, elapsed time.Duration) *SignalConfig {
	baseConfig := s.Signals[signalName]
	if baseConfig == nil {
		return nil
	}

	currentPhase := s.getCurrentPhase(elapsed)
	if currentPhase == nil {
		return baseConfig
	}

	if override, ok := currentPhase.Overrides[signalName]; ok {
		merged := *baseConfig
		if override.Add != 0 {
			merged.Add = override.Add
		}
		if override.Multiply != 0 {
			merged.Multiply = override.Multiply
		}
		if override.Value != "" {
			merged.Value = override.Value
		}
		if override.Baseline != 0 {
			merged.Baseline = override.Baseline
		}
		if override.Noise != 0 {
			merged.Noise = override.Noise
		}
		return &merged
	}

	return baseConfig
}

func (s *Scenario) getCurrentPhase(elapsed time.Duration) *Phase {
	if len(s.Phases) == 0 {
		return nil
	}

	var currentTime time.Duration
	for i := range s.Phases {
		phaseDuration, unlimited := ParseDuration(s.Phases[i].Duration)
		if unlimited {
			return &s.Phases[i]
		}

		if elapsed < currentTime+phaseDuration {
			return &s.Phases[i]
		}
		currentTime += phaseDuration
	}

	// Return last phase if we've exceeded total duration
	return &s.Phases[len(s.Phases)-1]
}
