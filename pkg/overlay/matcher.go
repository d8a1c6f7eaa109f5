package overlay

import (
	"log/slog"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/body"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/recognition"
)

// Matcher assigns each tracked head the emotion of its nearest recognized
// face.
type Matcher struct {
	// Margin is the off-screen tolerance in pixels.
	Margin float64

	// Default is used while the batch is empty.
	Default emotions.Emotion

	// Icons supplies icon sizes for draw commands.
	Icons *emotions.IconSet

	logger *slog.Logger
}

// NewMatcher creates a matcher with the default margin and emotion.
func NewMatcher(icons *emotions.IconSet, logger *slog.Logger) *Matcher {
	if icons == nil {
		icons = emotions.MustEmbedded()
	}
	return &Matcher{
		Margin:  DefaultMargin,
		Default: DefaultEmotion,
		Icons:   icons,
		logger:  log.Or(logger, "overlay"),
	}
}

// Nearest returns the index of the face whose center is closest to p, or
// -1 when faces is empty. The earlier face wins ties.
func Nearest(faces []recognition.FaceResult, p body.Point) int {
	best := -1
	bestDist := 0.0
	for i, f := range faces {
		x, y := f.Center()
		d := distance(x, y, p.X, p.Y)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Match places an emotion on every head inside bounds. A nil or empty
// batch gives every head the default emotion.
func (m *Matcher) Match(heads []body.TrackedHead, batch *recognition.Batch, bounds Bounds) []Placement {
	placements := make([]Placement, 0, len(heads))
	for _, h := range heads {
		if !bounds.Contains(h.Position, m.Margin) {
			continue
		}

		emotion := m.Default
		if batch.Len() > 0 {
			face := batch.Faces[Nearest(batch.Faces, h.Position)]
			emotion = emotions.ParseFace(face.Top())
		}

		placements = append(placements, Placement{
			TrackingID: h.TrackingID,
			Emotion:    emotion,
			Center:     h.Position,
			Scale:      Scale(h.Depth),
		})
	}
	return placements
}

// Commands converts placements into icon draw commands, each icon scaled
// by its placement and centered on the head.
func (m *Matcher) Commands(placements []Placement) []DrawCommand {
	cmds := make([]DrawCommand, 0, len(placements))
	for _, p := range placements {
		icon, err := m.Icons.For(p.Emotion)
		if err != nil {
			m.logger.Warn("no icon for emotion", "emotion", p.Emotion, "error", err)
			continue
		}
		w := float64(icon.Width) * p.Scale
		h := float64(icon.Height) * p.Scale
		cmds = append(cmds, DrawCommand{
			Icon: icon.Name,
			Dst:  Rect{X: p.Center.X - w/2, Y: p.Center.Y - h/2, W: w, H: h},
			Src:  Rect{W: float64(icon.Width), H: float64(icon.Height)},
		})
	}
	return cmds
}
