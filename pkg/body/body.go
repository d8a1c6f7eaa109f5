// Package body turns skeletal tracking frames into tracked head positions in
// display space.
package body

import "time"

// MinDepth is the smallest camera-space depth (meters) handed to a
// projector. Inferred joints can report zero or negative depth, for which
// projection is undefined.
const MinDepth = 0.1

// Vector3 is a camera-space point in meters. Z points away from the sensor.
type Vector3 struct {
	X, Y, Z float64
}

// Point is a display-space position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JointType identifies a skeletal joint.
type JointType int

const (
	JointHead JointType = iota
	JointNeck
	JointSpineShoulder
)

// TrackingState is the sensor's confidence in a joint.
type TrackingState int

const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

// Joint is one skeletal joint.
type Joint struct {
	Type     JointType
	Position Vector3
	State    TrackingState
}

// Body is one candidate body in a frame.
type Body struct {
	TrackingID uint64
	Tracked    bool
	Joints     map[JointType]Joint
}

// Frame is one skeletal tracking tick.
type Frame struct {
	Bodies     []Body
	CapturedAt time.Time
}

// TrackedHead is a head projected into display space.
type TrackedHead struct {
	Position   Point   `json:"position"`
	Depth      float64 `json:"depth"`
	TrackingID uint64  `json:"tracking_id"`
}

// Projector maps camera space to display space.
type Projector interface {
	Project(p Vector3) Point
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(Vector3) Point

// Project implements Projector.
func (f ProjectorFunc) Project(p Vector3) Point { return f(p) }
