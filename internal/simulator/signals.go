package simulator

import (
	"math/rand"

	"github.com/synheart/synheart-stress/internal/scenario"
)

// SignalGenerator generates a specific signal value
type SignalGenerator func(rng *rand.Rand, config *scenario.SignalConfig, elapsed float64) float64

type vitalDefaults struct {
	baseline, noise, min, max float64
}

var defaults = map[string]vitalDefaults{
	scenario.SignalBPM:         {baseline: 75, noise: 4, min: 40, max: 200},
	scenario.SignalHRV:         {baseline: 50, noise: 8, min: 5, max: 250},
	scenario.SignalSpO2:        {baseline: 98, noise: 0.8, min: 80, max: 100},
	scenario.SignalRespiration: {baseline: 16, noise: 1.5, min: 6, max: 40},
}

// GetAllSignals returns the generators for every numeric vital
func GetAllSignals() map[string]SignalGenerator {
	return map[string]SignalGenerator{
		scenario.SignalBPM:         vital(scenario.SignalBPM),
		scenario.SignalHRV:         vital(scenario.SignalHRV),
		scenario.SignalSpO2:        vital(scenario.SignalSpO2),
		scenario.SignalRespiration: vital(scenario.SignalRespiration),
	}
}

// vital draws baseline plus gaussian noise, applies the phase modifiers and
// clamps to the configured range.
func vital(name string) SignalGenerator {
	d := defaults[name]
	return func(rng *rand.Rand, config *scenario.SignalConfig, elapsed float64) float64 {
		baseline := orDefault(config.Baseline, d.baseline)
		noise := orDefault(config.Noise, d.noise)

		value := baseline
		if config.Add != 0 {
			value += config.Add
		}
		if config.Multiply != 0 {
			value *= config.Multiply
		}

		value += rng.NormFloat64() * noise

		return clamp(value, orDefault(config.Min, d.min), orDefault(config.Max, d.max))
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
