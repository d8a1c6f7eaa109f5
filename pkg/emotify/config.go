// Package emotify ties sensors, recognition services and renderers into the
// overlay loop. One App is built at startup and owns every collaborator it
// is given.
package emotify

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/teslashibe/go-emotify/pkg/appstate"
	"github.com/teslashibe/go-emotify/pkg/audio"
	"github.com/teslashibe/go-emotify/pkg/body"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/recognition"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// ColorSource delivers encoded color frames.
type ColorSource interface {
	Frames() <-chan sensor.ColorFrame
}

// BodySource delivers skeletal frames.
type BodySource interface {
	Bodies() <-chan body.Frame
}

// AudioSource delivers microphone sub-frames.
type AudioSource interface {
	Audio() <-chan sensor.AudioFrame
}

// StatusSource reports sensor availability changes.
type StatusSource interface {
	StatusChanges() <-chan sensor.Status
}

// Config holds loop tuning.
type Config struct {
	// Provider names the recognition backend for the dashboard.
	Provider string

	// Interval is the minimum spacing between recognition dispatches.
	Interval time.Duration

	// CallTimeout bounds one recognition call.
	CallTimeout time.Duration

	// BadgeLifetime is how long a tone badge stays visible.
	BadgeLifetime time.Duration

	// Threshold is the audio window size in samples.
	Threshold int

	Logger *slog.Logger
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		Interval:      recognition.DefaultInterval,
		CallTimeout:   recognition.DefaultTimeout,
		BadgeLifetime: tone.DefaultLifetime,
		Threshold:     audio.DefaultThreshold,
	}
}

// Deps are the collaborators an App drives. Color, Projector, Recognizer
// and Renderer are required.
type Deps struct {
	Color  ColorSource
	Bodies BodySource
	Audio  AudioSource
	Status []StatusSource

	Projector  body.Projector
	Recognizer recognition.Service

	// Speech receives full audio windows. Audio is ignored without it.
	Speech audio.Sink

	// Aggregator is shared with the speech pipeline. A new one is created
	// when nil.
	Aggregator *tone.Aggregator

	Renderer  overlay.Renderer
	Publisher appstate.Publisher
	Icons     *emotions.IconSet

	// Closers are released in reverse order by App.Close.
	Closers []io.Closer

	// Clock overrides time.Now.
	Clock func() time.Time
}

func (d *Deps) validate() error {
	var errs []error
	if d.Color == nil {
		errs = append(errs, errors.New("color source is required"))
	}
	if d.Projector == nil {
		errs = append(errs, errors.New("projector is required"))
	}
	if d.Recognizer == nil {
		errs = append(errs, errors.New("recognizer is required"))
	}
	if d.Renderer == nil {
		errs = append(errs, errors.New("renderer is required"))
	}
	return errors.Join(errs...)
}
