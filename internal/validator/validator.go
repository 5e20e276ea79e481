// Package validator decides whether a raw sample is worth scoring.
package validator

import "github.com/synheart/synheart-stress/internal/models"

// Physiological bpm bounds; samples outside them are rejected.
const (
	MinBPM = 40
	MaxBPM = 200
)

// Advisory text for the short-circuit dispositions.
const (
	IdleWarning    = "Place finger on sensor"
	InvalidWarning = "Please keep still and retry"
)

// Disposition is the outcome of validating a sample.
type Disposition int

const (
	Valid Disposition = iota
	Idle
	Invalid
)

func (d Disposition) String() string {
	switch d {
	case Idle:
		return "idle"
	case Invalid:
		return "invalid"
	default:
		return "valid"
	}
}

// Classify returns the disposition of s. A zero bpm means no finger on the
// sensor; anything outside [MinBPM, MaxBPM] is movement noise.
func Classify(s models.RawSample) Disposition {
	if s.BPM == 0 {
		return Idle
	}
	if s.BPM < MinBPM || s.BPM > MaxBPM {
		return Invalid
	}
	return Valid
}

// IdleReading is the fixed reading for the idle disposition. All vitals are
// zeroed; control fields are filled in by the caller.
func IdleReading() models.Reading {
	return models.Reading{
		Stress:  models.StressIdle,
		Warning: IdleWarning,
	}
}

// InvalidReading echoes the caller's vitals unmodified with the retry advisory.
func InvalidReading(s models.RawSample) models.Reading {
	return models.Reading{
		Stress:      models.StressInvalid,
		Warning:     InvalidWarning,
		BPM:         s.BPM,
		HRV:         s.HRV,
		SpO2:        s.SpO2,
		Respiration: s.Respiration,
	}
}
