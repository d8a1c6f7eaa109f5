package body

import (
	"time"

	"github.com/teslashibe/go-emotify/pkg/detection"
)

// Depth estimation constants for a face seen by a webcam.
const (
	// When a face fills ~20% of frame width the person is ~1m away:
	// distance = depthCalibrationConstant / faceWidthNorm.
	depthCalibrationConstant = 0.2

	minFaceDepth = 0.3
	maxFaceDepth = 5.0
)

// EstimateDepth approximates distance in meters from a face bounding box
// width given as a fraction of frame width. Returns 0 for invalid widths.
// Accuracy is roughly ±30% under three meters.
func EstimateDepth(faceWidth float64) float64 {
	if faceWidth <= 0 || faceWidth > 1 {
		return 0
	}

	distance := depthCalibrationConstant / faceWidth
	if distance < minFaceDepth {
		distance = minFaceDepth
	}
	if distance > maxFaceDepth {
		distance = maxFaceDepth
	}
	return distance
}

// FromDetections builds a body frame from face detections on a
// width x height image, for cameras without skeletal tracking. Each face
// becomes a tracked body whose head sits at the face center, at a depth
// estimated from face width. Tracking IDs follow detection order and are
// only stable within the frame.
func FromDetections(dets []detection.Detection, width, height int, cam Pinhole, at time.Time) Frame {
	frame := Frame{
		Bodies:     make([]Body, 0, len(dets)),
		CapturedAt: at,
	}
	for i, d := range dets {
		depth := EstimateDepth(d.W)
		if depth == 0 {
			continue
		}
		cx, cy := d.Center()
		center := Point{X: cx * float64(width), Y: cy * float64(height)}

		frame.Bodies = append(frame.Bodies, Body{
			TrackingID: uint64(i + 1),
			Tracked:    true,
			Joints: map[JointType]Joint{
				JointHead: {
					Type:     JointHead,
					Position: cam.Unproject(center, depth),
					State:    Inferred,
				},
			},
		})
	}
	return frame
}
