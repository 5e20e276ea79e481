package models

// IntervalRequest is the body of POST /set-interval.
type IntervalRequest struct {
	Interval *int `json:"interval"`
}

// SensorControlRequest is the body of POST /sensor-control.
type SensorControlRequest struct {
	Active *bool `json:"active"`
}

// DisplayModeRequest is the body of POST /display-mode.
type DisplayModeRequest struct {
	Mode *string `json:"mode"`
}

const StatusSuccess = "success"

// IntervalResponse acknowledges an interval change.
type IntervalResponse struct {
	Status   string `json:"status"`
	Interval int    `json:"interval"`
}

// SensorControlResponse acknowledges a sensor activation change.
type SensorControlResponse struct {
	Status         string `json:"status"`
	IsSensorActive bool   `json:"is_sensor_active"`
}

// DisplayModeResponse acknowledges a display mode change.
type DisplayModeResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// RecalibrateResponse acknowledges a recalibration trigger.
type RecalibrateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
