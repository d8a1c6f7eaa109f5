package body

// Tracker extracts head positions from body frames.
type Tracker struct {
	projector Projector
}

// NewTracker creates a tracker using the given projector.
func NewTracker(projector Projector) *Tracker {
	return &Tracker{projector: projector}
}

// ClampDepth raises depths below MinDepth to MinDepth.
func ClampDepth(z float64) float64 {
	if z < MinDepth {
		return MinDepth
	}
	return z
}

// Track returns one head per tracked body in the frame. Bodies without a
// head joint are ignored. The result is a fresh slice every call and its
// order carries no meaning.
func (t *Tracker) Track(frame Frame) []TrackedHead {
	heads := make([]TrackedHead, 0, len(frame.Bodies))
	for _, b := range frame.Bodies {
		if !b.Tracked {
			continue
		}
		joint, ok := b.Joints[JointHead]
		if !ok {
			continue
		}

		pos := joint.Position
		pos.Z = ClampDepth(pos.Z)

		heads = append(heads, TrackedHead{
			Position:   t.projector.Project(pos),
			Depth:      pos.Z,
			TrackingID: b.TrackingID,
		})
	}
	return heads
}
