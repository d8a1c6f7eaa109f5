// Package sensor defines the frame types shared by capture sources, the
// overlay renderer and the dashboard.
package sensor

import "time"

// ColorFrame is one encoded color image.
type ColorFrame struct {
	Seq        uint64    `json:"seq"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	JPEG       []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
}

// AudioFrame is one sub-frame of mono float32 samples.
type AudioFrame struct {
	Samples    []float32
	SampleRate int
	CapturedAt time.Time
}

// Status is the availability of the capture hardware.
type Status string

const (
	StatusRunning     Status = "running"
	StatusNoSensor    Status = "no_sensor"
	StatusUnavailable Status = "sensor_unavailable"
)

// Text returns the human-readable status line.
func (s Status) Text() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusNoSensor:
		return "No sensor connected"
	case StatusUnavailable:
		return "Sensor not available"
	default:
		return string(s)
	}
}
