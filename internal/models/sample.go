package models

import (
	"encoding/json"
	"math"
)

// Defaults applied to fields a device leaves out of a sample.
const (
	DefaultBPM         = 0
	DefaultRespiration = 16
	DefaultSpO2        = 98
	DefaultHRV         = 0.0
)

// RawSample is a single vital-sign sample posted by a sensor.
type RawSample struct {
	BPM         int     `json:"bpm"`
	Respiration int     `json:"respiration"`
	SpO2        int     `json:"spo2"`
	HRV         float64 `json:"hrv"`
}

// DefaultSample returns the sample used when a request body carries no fields.
// A missing bpm routes the sample to the idle disposition.
func DefaultSample() RawSample {
	return RawSample{
		BPM:         DefaultBPM,
		Respiration: DefaultRespiration,
		SpO2:        DefaultSpO2,
		HRV:         DefaultHRV,
	}
}

type wireSample struct {
	BPM         *float64 `json:"bpm"`
	Respiration *float64 `json:"respiration"`
	SpO2        *float64 `json:"spo2"`
	HRV         *float64 `json:"hrv"`
}

// UnmarshalJSON decodes a sample, substituting defaults for absent or null
// fields. Integer vitals sent as fractional numbers are rounded.
func (s *RawSample) UnmarshalJSON(data []byte) error {
	var w wireSample
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*s = DefaultSample()
	if w.BPM != nil {
		s.BPM = int(math.Round(*w.BPM))
	}
	if w.Respiration != nil {
		s.Respiration = int(math.Round(*w.Respiration))
	}
	if w.SpO2 != nil {
		s.SpO2 = int(math.Round(*w.SpO2))
	}
	if w.HRV != nil {
		s.HRV = *w.HRV
	}
	return nil
}

// ParseSample decodes a request body into a sample. Bodies that are empty or
// not valid JSON yield the default sample together with the decode error, so
// callers can log the problem and still ingest.
func ParseSample(body []byte) (RawSample, error) {
	sample := DefaultSample()
	if len(body) == 0 {
		return sample, nil
	}
	if err := json.Unmarshal(body, &sample); err != nil {
		return DefaultSample(), err
	}
	return sample, nil
}
