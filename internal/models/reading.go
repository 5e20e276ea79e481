package models

import "time"

// Stress labels outside the classifier's vocabulary.
const (
	StressIdle    = "Idle"
	StressInvalid = "Invalid"
)

// DefaultDisplayMode is the display mode a device starts in.
const DefaultDisplayMode = "STRESS"

// DefaultSendInterval is the default device posting interval in milliseconds.
const DefaultSendInterval = 10000

// Reading is the latest computed state cached for polling clients.
type Reading struct {
	ReadingID      string  `json:"reading_id,omitempty"`
	Stress         string  `json:"stress"`
	Warning        string  `json:"warning"`
	BPM            int     `json:"bpm"`
	HRV            float64 `json:"hrv"`
	SpO2           int     `json:"spo2"`
	Respiration    int     `json:"respiration"`
	DisplayMode    string  `json:"display_mode"`
	IsSensorActive bool    `json:"is_sensor_active"`
	SendInterval   int     `json:"send_interval"`
	Recalibrate    bool    `json:"recalibrate"`
	LastUpdated    float64 `json:"last_updated"`
	// ServerNow is only set on readings that carry their own heartbeat
	// (the invalid disposition); snapshots always set it.
	ServerNow float64 `json:"server_now,omitempty"`
}

// Snapshot is a reading stamped with the server clock at read time.
type Snapshot struct {
	Reading
	ServerNow float64 `json:"server_now"`
}

// NewSnapshot stamps r with now.
func NewSnapshot(r Reading, now time.Time) Snapshot {
	return Snapshot{Reading: r, ServerNow: UnixSeconds(now)}
}

// UnixSeconds converts t to fractional seconds since the epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
