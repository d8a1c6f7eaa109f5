// Package overlay correlates tracked heads with the latest face emotion
// results and produces draw commands for a renderer.
package overlay

import (
	"math"

	"github.com/teslashibe/go-emotify/pkg/body"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

const (
	// DefaultMargin is how far outside the display a head may sit and
	// still get an overlay.
	DefaultMargin = 20.0

	// DepthScale is the numerator of the inverse-depth scale factor.
	DepthScale = 5.0
)

// DefaultEmotion is drawn for heads while no recognition result exists or
// the latest result found no faces.
// Anger is long-standing behaviour rather than a considered choice; callers
// wanting neutral can set Matcher.Default.
const DefaultEmotion = emotions.Anger

// Rect is a rectangle in pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DrawCommand draws the Src region of an icon into Dst on the frame.
type DrawCommand struct {
	Icon string `json:"icon"`
	Dst  Rect   `json:"dst"`
	Src  Rect   `json:"src"`
}

// Placement is the emotion chosen for one head.
type Placement struct {
	TrackingID uint64           `json:"tracking_id"`
	Emotion    emotions.Emotion `json:"emotion"`
	Center     body.Point       `json:"center"`
	Scale      float64          `json:"scale"`
}

// Bounds is the display size heads are checked against.
type Bounds struct {
	Width  float64
	Height float64
}

// BoundsOf returns the bounds of a frame.
func BoundsOf(f sensor.ColorFrame) Bounds {
	return Bounds{Width: float64(f.Width), Height: float64(f.Height)}
}

// Contains reports whether p lies within the bounds grown by margin.
func (b Bounds) Contains(p body.Point, margin float64) bool {
	return p.X >= -margin && p.X <= b.Width+margin &&
		p.Y >= -margin && p.Y <= b.Height+margin
}

// Scale returns the overlay scale for a head at depth. Depth must be
// positive; body.Tracker guarantees it.
func Scale(depth float64) float64 {
	return DepthScale / depth
}

// Renderer draws commands onto a color frame.
type Renderer interface {
	Render(frame sensor.ColorFrame, cmds []DrawCommand) error
}

func distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}
