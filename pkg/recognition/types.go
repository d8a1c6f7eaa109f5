// Package recognition runs remote face-emotion recognition off the render
// path and caches the latest result batch.
//
// The pieces:
//   - Throttle gates dispatches to at most one per interval.
//   - Dispatcher fires a Service call on its own goroutine and stores the
//     result, swallowing failures.
//   - Cache holds the most recent Batch behind an atomic pointer so a reader
//     always sees one whole batch.
package recognition

import (
	"context"
	"sort"
	"time"
)

// Service recognizes faces and their emotion scores in a JPEG image.
type Service interface {
	Recognize(ctx context.Context, jpeg []byte) ([]FaceResult, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, jpeg []byte) ([]FaceResult, error)

// Recognize implements Service.
func (f ServiceFunc) Recognize(ctx context.Context, jpeg []byte) ([]FaceResult, error) {
	return f(ctx, jpeg)
}

// Rect is a face rectangle in image pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the rectangle center.
func (r Rect) Center() (x, y float64) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// Score is one emotion label with its confidence.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FaceResult is one recognized face. Scores are ranked, highest first.
type FaceResult struct {
	Rect   Rect    `json:"rect"`
	Scores []Score `json:"scores"`
}

// Center returns the face center.
func (f FaceResult) Center() (x, y float64) {
	return f.Rect.Center()
}

// Top returns the top-ranked label, or "" when there are no scores.
func (f FaceResult) Top() string {
	if len(f.Scores) == 0 {
		return ""
	}
	return f.Scores[0].Label
}

// RankScores orders named scores highest first. Equal scores are ordered
// by label so the ranking is deterministic.
func RankScores(scores map[string]float64) []Score {
	ranked := make([]Score, 0, len(scores))
	for label, s := range scores {
		ranked = append(ranked, Score{Label: label, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}

// Batch is the result of one completed recognition call. A stored batch is
// never modified.
type Batch struct {
	ID          string       `json:"id"`
	CapturedAt  time.Time    `json:"captured_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Faces       []FaceResult `json:"faces"`
}

// Len returns the number of faces, treating nil as empty.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Faces)
}
