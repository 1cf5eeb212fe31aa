package events

import "time"

// Temperature update as published by the telemetry source
//
// example:
// `{"groupName": "Cellar", "temperature": 21.5, "timestamp": "2025-09-01T16:03:22Z"}`
type TemperatureUpdate struct {
	// Name of the reporting sensor group
	GroupName string `json:"groupName"`
	// Degrees Celsius
	Temperature float64 `json:"temperature"`
	// ISO-8601, optional
	Timestamp string `json:"timestamp,omitempty"`
}

// Reading is one accepted telemetry sample
type Reading struct {
	Group       string
	Temperature float64
	// set by the sender or, if missing, the time of receipt
	ObservedAt time.Time
}
