package tone

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-emotify/internal/log"
)

// State is the aggregator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateBadgeActive
)

// String returns the state name.
func (s State) String() string {
	if s == StateBadgeActive {
		return "badge_active"
	}
	return "idle"
}

// Stats counts aggregator outcomes.
type Stats struct {
	Offered    uint64 `json:"offered"`
	Created    uint64 `json:"created"`
	Suppressed uint64 `json:"suppressed"`
	Empty      uint64 `json:"empty"`
}

// Aggregator holds at most one live badge. A new badge is only created once
// the previous one has expired; results arriving meanwhile are dropped.
// It is safe for concurrent use.
type Aggregator struct {
	lifetime time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	badge *Badge

	offered    atomic.Uint64
	created    atomic.Uint64
	suppressed atomic.Uint64
	empty      atomic.Uint64
}

// NewAggregator creates an aggregator. A non-positive lifetime uses
// DefaultLifetime.
func NewAggregator(lifetime time.Duration, logger *slog.Logger) *Aggregator {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Aggregator{
		lifetime: lifetime,
		logger:   log.Or(logger, "tone"),
	}
}

// Lifetime returns the badge lifetime.
func (a *Aggregator) Lifetime() time.Duration {
	return a.lifetime
}

// Offer turns a tone response into a badge. It returns the new badge and
// true, or nil and false when the response is empty or a badge is still
// live.
func (a *Aggregator) Offer(now time.Time, tones []Tone) (*Badge, bool) {
	a.offered.Add(1)
	if len(tones) == 0 {
		a.empty.Add(1)
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.liveLocked(now) {
		a.suppressed.Add(1)
		a.logger.Debug("tone result suppressed", "active_badge", a.badge.ID)
		return nil, false
	}

	b := &Badge{
		ID:        uuid.NewString(),
		Moods:     Select(tones),
		CreatedAt: now,
		ExpiresAt: now.Add(a.lifetime),
	}
	a.badge = b
	a.created.Add(1)
	a.logger.Info("tone badge created", "id", b.ID, "moods", b.Moods)
	return b, true
}

// Active returns the live badge at now, or nil. An expired badge is
// discarded.
func (a *Aggregator) Active(now time.Time) *Badge {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.liveLocked(now) {
		return nil
	}
	return a.badge
}

// State reports the lifecycle state at now.
func (a *Aggregator) State(now time.Time) State {
	if a.Active(now) != nil {
		return StateBadgeActive
	}
	return StateIdle
}

// Stats returns a snapshot of the counters.
func (a *Aggregator) Stats() Stats {
	return Stats{
		Offered:    a.offered.Load(),
		Created:    a.created.Load(),
		Suppressed: a.suppressed.Load(),
		Empty:      a.empty.Load(),
	}
}

func (a *Aggregator) liveLocked(now time.Time) bool {
	if a.badge == nil {
		return false
	}
	if now.Sub(a.badge.CreatedAt) >= a.lifetime {
		a.badge = nil
		return false
	}
	return true
}
