// Package emotions defines the closed set of emotions go-emotify can display
// and the icon assets that represent them.
//
// Labels from remote services never flow through the rest of the code as raw
// strings: they are parsed once with ParseFace (face recognition labels) or
// ParseTone (speech tone names), both of which are total and fall back to
// Neutral.
package emotions

import (
	"fmt"
	"strings"
)

// Emotion is one of the displayable emotions.
type Emotion int

// The zero value is Anger, matching the icon shown before any recognition
// result has arrived.
const (
	Anger Emotion = iota
	Contempt
	Sadness
	Neutral
	Happiness
	Fear
)

var names = [...]string{
	Anger:     "anger",
	Contempt:  "contempt",
	Sadness:   "sadness",
	Neutral:   "neutral",
	Happiness: "happiness",
	Fear:      "fear",
}

// All returns every emotion in declaration order.
func All() []Emotion {
	return []Emotion{Anger, Contempt, Sadness, Neutral, Happiness, Fear}
}

// String returns the lower-case name, which is also the icon name.
func (e Emotion) String() string {
	if e < 0 || int(e) >= len(names) {
		return fmt.Sprintf("emotion(%d)", int(e))
	}
	return names[e]
}

// Valid reports whether e is one of the declared emotions.
func (e Emotion) Valid() bool {
	return e >= 0 && int(e) < len(names)
}

// MarshalText implements encoding.TextMarshaler.
func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEmotion, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Only canonical names are
// accepted here; use ParseFace or ParseTone for service labels.
func (e *Emotion) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, n := range names {
		if n == s {
			*e = Emotion(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownEmotion, string(text))
}

// ParseFace maps a face recognition score label to an Emotion.
// Labels without an icon (disgust, surprise, anything unknown) map to Neutral.
func ParseFace(label string) Emotion {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "anger":
		return Anger
	case "contempt":
		return Contempt
	case "sadness":
		return Sadness
	case "neutral":
		return Neutral
	case "happiness":
		return Happiness
	case "fear":
		return Fear
	default:
		return Neutral
	}
}

// ParseTone maps a speech tone category name to an Emotion.
// Disgust shares the contempt icon and joy the happiness icon; anything else
// is Neutral.
func ParseTone(name string) Emotion {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anger":
		return Anger
	case "disgust":
		return Contempt
	case "sadness":
		return Sadness
	case "joy":
		return Happiness
	case "fear":
		return Fear
	default:
		return Neutral
	}
}
