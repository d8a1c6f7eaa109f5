package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-emotify/internal/log"
)

// DefaultTimeout bounds a single background recognition call.
const DefaultTimeout = 20 * time.Second

// Stats counts dispatcher outcomes.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	Empty      uint64 `json:"empty"`
}

// Dispatcher runs recognition calls in the background and publishes each
// successful result into a Cache, including results with no faces. Calls
// never block the caller and failures never reach it.
type Dispatcher struct {
	service Service
	cache   *Cache
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	dispatched atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	empty      atomic.Uint64

	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCallTimeout bounds each background call.
func WithCallTimeout(d time.Duration) DispatcherOption {
	return func(p *Dispatcher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(p *Dispatcher) { p.logger = l }
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(p *Dispatcher) { p.now = now }
}

// NewDispatcher creates a dispatcher writing into cache.
func NewDispatcher(service Service, cache *Cache, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		service: service,
		cache:   cache,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = log.Or(d.logger, "recognition")
	return d
}

// Dispatch starts a recognition call for jpeg and returns its request ID
// immediately. The call is bound to ctx plus the call timeout; when ctx is
// cancelled the result is discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, jpeg []byte, capturedAt time.Time) string {
	id := uuid.NewString()
	d.dispatched.Add(1)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		d.run(ctx, id, jpeg, capturedAt)
	}()

	return id
}

func (d *Dispatcher) run(ctx context.Context, id string, jpeg []byte, capturedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("recognition panicked", "request_id", id, "panic", fmt.Sprint(r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	faces, err := d.service.Recognize(callCtx, jpeg)
	if err != nil {
		d.failed.Add(1)
		d.logger.Warn("recognition failed", "request_id", id, "error", err, "elapsed", time.Since(start))
		return
	}
	if ctx.Err() != nil {
		d.logger.Debug("recognition result dropped after shutdown", "request_id", id)
		return
	}
	if len(faces) == 0 {
		// Nobody faces the camera any more; heads fall back to the default.
		d.empty.Add(1)
		d.logger.Debug("recognition returned no faces", "request_id", id)
	}

	d.cache.Store(&Batch{
		ID:          id,
		CapturedAt:  capturedAt,
		CompletedAt: d.now(),
		Faces:       faces,
	})
	d.completed.Add(1)
	d.logger.Debug("recognition stored",
		"request_id", id,
		"faces", len(faces),
		"elapsed", time.Since(start),
	)
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Completed:  d.completed.Load(),
		Failed:     d.failed.Load(),
		Empty:      d.empty.Load(),
	}
}

// Wait blocks until every dispatched call has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
