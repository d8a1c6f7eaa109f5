// Package detection defines face detections and the detector interface. It
// feeds the body tracker with face-derived bodies when no skeletal sensor is
// attached. Backends live in subpackages.
package detection

import "sort"

// Detection represents a detected face.
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for face detection backends.
type Detector interface {
	// Detect finds faces in a JPEG image.
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence
	NMSThresh        float64 // Non-maximum suppression overlap
	InputWidth       int     // Initial model input width
	InputHeight      int     // Initial model input height
}

// DefaultConfig returns defaults for YuNet.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.6,
		NMSThresh:        0.3,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Filter keeps detections at or above minConfidence, largest first.
// Ties in area keep detector order.
func Filter(dets []Detection, minConfidence float64) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= minConfidence && d.W > 0 && d.H > 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Area() > out[j].Area()
	})
	return out
}
