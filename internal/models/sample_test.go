package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSample_Defaults(t *testing.T) {
	tests := []struct {
		name string
		body string
		want RawSample
	}{
		{"empty body", "", RawSample{BPM: 0, Respiration: 16, SpO2: 98, HRV: 0}},
		{"empty object", "{}", RawSample{BPM: 0, Respiration: 16, SpO2: 98, HRV: 0}},
		{"bpm only", `{"bpm":75}`, RawSample{BPM: 75, Respiration: 16, SpO2: 98, HRV: 0}},
		{"all fields", `{"bpm":75,"respiration":18,"spo2":96,"hrv":42.5}`, RawSample{BPM: 75, Respiration: 18, SpO2: 96, HRV: 42.5}},
		{"null fields", `{"bpm":80,"spo2":null,"hrv":null}`, RawSample{BPM: 80, Respiration: 16, SpO2: 98, HRV: 0}},
		{"fractional ints", `{"bpm":74.6,"respiration":15.2}`, RawSample{BPM: 75, Respiration: 15, SpO2: 98, HRV: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSample([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseSample(%q) error: %v", tt.body, err)
			}
			if got != tt.want {
				t.Errorf("ParseSample(%q) = %+v, want %+v", tt.body, got, tt.want)
			}
		})
	}
}

func TestParseSample_MalformedFallsBackToDefaults(t *testing.T) {
	got, err := ParseSample([]byte("not json"))
	if err == nil {
		t.Fatal("expected decode error for malformed body")
	}
	if got != DefaultSample() {
		t.Errorf("expected default sample, got %+v", got)
	}
}

func TestSnapshot_ServerNowOverridesReading(t *testing.T) {
	r := Reading{Stress: StressInvalid, BPM: 300, ServerNow: 1}
	now := time.Unix(1700000000, 500000000)

	data, err := json.Marshal(NewSnapshot(r, now))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["server_now"] != 1700000000.5 {
		t.Errorf("server_now = %v, want 1700000000.5", decoded["server_now"])
	}
	if decoded["stress"] != StressInvalid {
		t.Errorf("stress = %v, want %s", decoded["stress"], StressInvalid)
	}
}
