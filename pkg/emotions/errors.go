package emotions

import "errors"

var (
	// ErrUnknownEmotion is returned when text does not name an Emotion.
	ErrUnknownEmotion = errors.New("unknown emotion")

	// ErrIconNotFound is returned when an icon is not in the set.
	ErrIconNotFound = errors.New("icon not found")

	// ErrInvalidIcon is returned when an icon manifest entry is malformed.
	ErrInvalidIcon = errors.New("invalid icon data")
)
