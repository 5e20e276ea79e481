// Package features derives the model inputs that are computed from raw vitals.
package features

import "github.com/synheart/synheart-stress/internal/models"

// MaxHRV caps RMSSD values before derivation; anything above is sensor noise.
const MaxHRV = 200.0

// Count is the length of the model input vector.
const Count = 6

// Derived holds the features computed from a sample.
type Derived struct {
	StressIndex   float64 `json:"stress_index"`
	SpO2Deviation float64 `json:"spo2_deviation"`
}

// ClampHRV applies the upper HRV bound.
func ClampHRV(hrv float64) float64 {
	if hrv > MaxHRV {
		return MaxHRV
	}
	return hrv
}

// Derive computes the derived features of s. The HRV is clamped first and a
// zero HRV yields a zero stress index.
func Derive(s models.RawSample) Derived {
	hrv := ClampHRV(s.HRV)

	var stressIndex float64
	if hrv != 0 {
		stressIndex = float64(s.BPM) / hrv
	}

	return Derived{
		StressIndex:   stressIndex,
		SpO2Deviation: 100 - float64(s.SpO2),
	}
}

// Vector builds the classifier input
// [bpm, respiration, spo2, hrv, stress_index, spo2_deviation] using the
// clamped HRV.
func Vector(s models.RawSample) []float64 {
	d := Derive(s)
	return []float64{
		float64(s.BPM),
		float64(s.Respiration),
		float64(s.SpO2),
		ClampHRV(s.HRV),
		d.StressIndex,
		d.SpO2Deviation,
	}
}
