package emotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/appstate"
	"github.com/teslashibe/go-emotify/pkg/audio"
	"github.com/teslashibe/go-emotify/pkg/body"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/recognition"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// App is the overlay loop. Heads are only touched by Run.
type App struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	tracker    *body.Tracker
	throttle   *recognition.Throttle
	cache      *recognition.Cache
	dispatcher *recognition.Dispatcher
	matcher    *overlay.Matcher
	aggregator *tone.Aggregator
	chunker    *audio.Chunker

	heads  []body.TrackedHead
	status sensor.Status

	closeOnce sync.Once
	closeErr  error
}

// New builds an App. On error nothing in deps.Closers has been released;
// the caller still owns them.
func New(cfg Config, deps Deps) (*App, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("emotify: %w", err)
	}

	logger := log.Or(cfg.Logger, "emotify")
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	agg := deps.Aggregator
	if agg == nil {
		agg = tone.NewAggregator(cfg.BadgeLifetime, cfg.Logger)
	}

	cache := &recognition.Cache{}
	a := &App{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		now:      now,
		tracker:  body.NewTracker(deps.Projector),
		throttle: recognition.NewThrottle(cfg.Interval),
		cache:    cache,
		dispatcher: recognition.NewDispatcher(deps.Recognizer, cache,
			recognition.WithCallTimeout(cfg.CallTimeout),
			recognition.WithDispatchLogger(cfg.Logger),
			recognition.WithClock(now),
		),
		matcher:    overlay.NewMatcher(deps.Icons, cfg.Logger),
		aggregator: agg,
		status:     sensor.StatusNoSensor,
	}
	if deps.Speech != nil && deps.Audio != nil {
		a.chunker = audio.NewChunker(cfg.Threshold, deps.Speech, cfg.Logger)
	}
	return a, nil
}

// Aggregator returns the tone aggregator rendered as the badge.
func (a *App) Aggregator() *tone.Aggregator { return a.aggregator }

// Cache returns the recognition result cache.
func (a *App) Cache() *recognition.Cache { return a.cache }

// Dispatcher returns the recognition dispatcher.
func (a *App) Dispatcher() *recognition.Dispatcher { return a.dispatcher }

// Run drives the loop until ctx is done or the color source closes. It
// waits for in-flight recognition calls before returning.
func (a *App) Run(ctx context.Context) error {
	defer a.dispatcher.Wait()

	statusCh := a.mergeStatus(ctx)

	colors := a.deps.Color.Frames()
	var bodies <-chan body.Frame
	if a.deps.Bodies != nil {
		bodies = a.deps.Bodies.Bodies()
	}
	var sound <-chan sensor.AudioFrame
	if a.chunker != nil {
		sound = a.deps.Audio.Audio()
	}

	a.logger.Info("overlay loop started", "provider", a.cfg.Provider,
		"interval", a.throttle.Interval(), "bodies", bodies != nil, "audio", sound != nil)

	for {
		select {
		case <-ctx.Done():
			return nil

		case f, ok := <-bodies:
			if !ok {
				bodies = nil
				a.heads = nil
				continue
			}
			a.heads = a.tracker.Track(f)

		case f, ok := <-colors:
			if !ok {
				a.setStatus(sensor.StatusUnavailable)
				return nil
			}
			a.onColor(ctx, f)

		case f, ok := <-sound:
			if !ok {
				sound = nil
				continue
			}
			a.chunker.Write(f.Samples)

		case st := <-statusCh:
			a.setStatus(st)
		}
	}
}

func (a *App) onColor(ctx context.Context, f sensor.ColorFrame) {
	now := a.now()

	if len(a.heads) > 0 && a.throttle.Due(now) {
		id := a.dispatcher.Dispatch(ctx, f.JPEG, f.CapturedAt)
		a.throttle.Mark(now)
		a.logger.Debug("recognition dispatched", "id", id, "heads", len(a.heads), "seq", f.Seq)
	}

	batch := a.cache.Load()
	placements := a.matcher.Match(a.heads, batch, overlay.BoundsOf(f))
	cmds := a.matcher.Commands(placements)
	if badge := a.aggregator.Active(now); badge != nil {
		cmds = append(cmds, a.matcher.BadgeCommands(badge.Moods)...)
	}

	if err := a.deps.Renderer.Render(f, cmds); err != nil {
		a.logger.Debug("render failed", "seq", f.Seq, "error", err)
	}

	if a.deps.Publisher == nil {
		return
	}
	heads := len(a.heads)
	recStats := a.dispatcher.Stats()
	toneStats := a.aggregator.Stats()
	a.deps.Publisher.UpdateState(func(s *appstate.State) {
		s.Provider = a.cfg.Provider
		s.Heads = heads
		s.Placements = placements
		s.FrameSeq = f.Seq
		s.Recognition = recStats
		s.Tone = toneStats
		s.BatchID, s.BatchFaces, s.BatchAt = "", 0, time.Time{}
		if batch != nil {
			s.BatchID = batch.ID
			s.BatchFaces = batch.Len()
			s.BatchAt = batch.CompletedAt
		}
	})
}

func (a *App) setStatus(st sensor.Status) {
	if st == a.status {
		return
	}
	a.status = st
	a.logger.Info("sensor status", "status", st, "text", st.Text())
	if a.deps.Publisher != nil {
		a.deps.Publisher.UpdateState(func(s *appstate.State) {
			s.Status = st
		})
	}
}

// mergeStatus fans every status source into one channel.
func (a *App) mergeStatus(ctx context.Context) <-chan sensor.Status {
	if len(a.deps.Status) == 0 {
		return nil
	}
	out := make(chan sensor.Status, len(a.deps.Status))
	for _, src := range a.deps.Status {
		in := src.StatusChanges()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case st, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- st:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	return out
}

// Close releases deps.Closers in reverse order and reports every failure.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = CloseAll(a.deps.Closers)
	})
	return a.closeErr
}

// CloseAll closes cs from last to first. It is also used to unwind a
// partially built set of collaborators.
func CloseAll(cs []io.Closer) error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if cs[i] == nil {
			continue
		}
		if err := cs[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
