package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// DefaultAnalyzeTimeout bounds one tone analysis call.
const DefaultAnalyzeTimeout = 15 * time.Second

// Pipeline feeds recognized utterances to a tone analyzer and offers the
// results to an aggregator. Analysis runs off the utterance loop so a slow
// analyzer never holds back recognition.
type Pipeline struct {
	recognizer Recognizer
	analyzer   tone.Analyzer
	aggregator *tone.Aggregator
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger

	// OnBadge, when set, is called with each new badge and the utterance
	// whose analysis produced it.
	OnBadge func(*tone.Badge, Utterance)

	wg sync.WaitGroup

	mu   sync.Mutex
	last Utterance
}

// NewPipeline wires a recognizer to an analyzer and aggregator.
func NewPipeline(r Recognizer, a tone.Analyzer, agg *tone.Aggregator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		recognizer: r,
		analyzer:   a,
		aggregator: agg,
		timeout:    DefaultAnalyzeTimeout,
		now:        time.Now,
		logger:     log.Or(logger, "speech.pipeline"),
	}
}

// SetClock overrides the time source used for badge creation.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run consumes utterances until ctx is done or the recognizer closes its
// channel, then waits for in-flight analyses.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-p.recognizer.Utterances():
			if !ok {
				return nil
			}
			if !u.OK() {
				continue
			}
			p.mu.Lock()
			p.last = u
			p.mu.Unlock()

			p.logger.Info("utterance", "text", u.Text, "confidence", u.Confidence)
			p.wg.Add(1)
			go p.analyze(ctx, u)
		}
	}
}

// Last returns the most recent usable utterance.
func (p *Pipeline) Last() Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pipeline) analyze(ctx context.Context, u Utterance) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("tone analysis panicked", "panic", fmt.Sprint(r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tones, err := p.analyzer.Analyze(callCtx, u.Text)
	if err != nil {
		p.logger.Warn("tone analysis failed", "error", err)
		return
	}

	badge, ok := p.aggregator.Offer(p.now(), tones)
	if ok && p.OnBadge != nil {
		p.OnBadge(badge, u)
	}
}
