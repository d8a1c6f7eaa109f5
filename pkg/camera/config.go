// Package camera captures color frames from a local video device with
// OpenCV and, without a skeletal sensor, derives tracked heads from face
// detections. It also provides an OpenCV window renderer for the overlay.
package camera

import (
	"fmt"
	"strconv"
)

// Config holds capture parameters.
type Config struct {
	// Device is a camera index ("0") or a video file / stream URL.
	Device string `json:"device"`

	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
	Quality   int `json:"quality"` // JPEG quality 1-100

	// HFOV is the horizontal field of view in degrees, used to build the
	// projector for face-derived heads.
	HFOV float64 `json:"hfov"`

	// BufferFrames bounds frames waiting for the consumer. Older frames are
	// dropped first.
	BufferFrames int `json:"buffer_frames"`
}

// DefaultConfig returns 1080p capture from the first camera, matching the
// color resolution of a skeletal sensor.
func DefaultConfig() Config {
	return Config{
		Device:       "0",
		Width:        1920,
		Height:       1080,
		Framerate:    30,
		Quality:      85,
		HFOV:         84.1,
		BufferFrames: 2,
	}
}

// Validate checks ranges. It returns every problem found, or nil.
func (c *Config) Validate() []string {
	var errs []string
	if c.Device == "" {
		errs = append(errs, "device is required")
	}
	if c.Width < 160 || c.Width > 7680 {
		errs = append(errs, "width must be between 160 and 7680")
	}
	if c.Height < 120 || c.Height > 4320 {
		errs = append(errs, "height must be between 120 and 4320")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}
	if c.HFOV <= 0 || c.HFOV >= 180 {
		errs = append(errs, "hfov must be between 0 and 180 degrees")
	}
	if c.BufferFrames < 1 {
		errs = append(errs, "buffer_frames must be at least 1")
	}
	return errs
}

// Err returns Validate's findings as one error.
func (c *Config) Err() error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera: invalid config: %v", errs)
	}
	return nil
}

// deviceArg converts Device to what OpenCV expects: an index for numeric
// strings, the string otherwise.
func (c *Config) deviceArg() interface{} {
	if n, err := strconv.Atoi(c.Device); err == nil {
		return n
	}
	return c.Device
}
