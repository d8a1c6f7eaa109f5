// Package tone turns speech tone analysis into a short-lived mood badge.
//
// An Analyzer scores an utterance. Select ranks and filters the scores into
// at most MaxMoods moods, and an Aggregator holds the single live Badge.
package tone

import (
	"context"
	"sort"
	"time"

	"github.com/teslashibe/go-emotify/pkg/emotions"
)

const (
	// Floor is the lowest score a tone needs to appear on a badge.
	Floor = 0.3

	// MaxMoods caps moods per badge.
	MaxMoods = 3

	// DefaultLifetime is how long a badge stays on screen.
	DefaultLifetime = 5000 * time.Millisecond
)

// Tone is one scored tone category.
type Tone struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Analyzer scores the tones of a piece of text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Tone, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, text string) ([]Tone, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) ([]Tone, error) {
	return f(ctx, text)
}

// Badge is an immutable set of moods shown for a fixed lifetime.
type Badge struct {
	ID        string             `json:"id"`
	Moods     []emotions.Emotion `json:"moods"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Select ranks tones highest first, keeps at most MaxMoods and stops at the
// first tone below Floor. Names map through emotions.ParseTone. When nothing
// survives the result is a single Neutral.
func Select(tones []Tone) []emotions.Emotion {
	ranked := make([]Tone, len(tones))
	copy(ranked, tones)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	moods := make([]emotions.Emotion, 0, MaxMoods)
	for _, t := range ranked {
		if len(moods) == MaxMoods || t.Score < Floor {
			break
		}
		moods = append(moods, emotions.ParseTone(t.Name))
	}
	if len(moods) == 0 {
		moods = append(moods, emotions.Neutral)
	}
	return moods
}
