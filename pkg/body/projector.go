package body

import "math"

// Pinhole is an ideal pinhole camera projector. Camera Y points up, display
// Y points down.
type Pinhole struct {
	Fx, Fy float64 // Focal lengths in pixels
	Cx, Cy float64 // Principal point in pixels
}

// KinectColor returns intrinsics approximating a 1920x1080 depth-sensor
// color camera.
func KinectColor() Pinhole {
	return Pinhole{Fx: 1081.37, Fy: 1081.37, Cx: 959.5, Cy: 539.5}
}

// FromFOV derives intrinsics for a width x height image with the given
// horizontal field of view in radians and square pixels.
func FromFOV(width, height int, hfov float64) Pinhole {
	f := float64(width) / 2 / math.Tan(hfov/2)
	return Pinhole{
		Fx: f,
		Fy: f,
		Cx: float64(width) / 2,
		Cy: float64(height) / 2,
	}
}

// Project implements Projector. Callers must pass a positive Z.
func (p Pinhole) Project(v Vector3) Point {
	return Point{
		X: p.Cx + p.Fx*v.X/v.Z,
		Y: p.Cy - p.Fy*v.Y/v.Z,
	}
}

// Unproject returns the camera-space point at depth z that projects to pt.
func (p Pinhole) Unproject(pt Point, z float64) Vector3 {
	return Vector3{
		X: (pt.X - p.Cx) * z / p.Fx,
		Y: (p.Cy - pt.Y) * z / p.Fy,
		Z: z,
	}
}
