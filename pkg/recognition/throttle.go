package recognition

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between recognition dispatches.
const DefaultInterval = 3000 * time.Millisecond

// Throttle enforces a minimum interval between dispatches, measured from
// the previous dispatch. Completion of earlier calls plays no part.
type Throttle struct {
	interval time.Duration

	mu     sync.Mutex
	last   time.Time
	marked bool
}

// NewThrottle creates a throttle. Non-positive intervals use DefaultInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{interval: interval}
}

// Interval returns the configured interval.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Due reports whether a dispatch is allowed at now. The first call is
// always due.
func (t *Throttle) Due(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dueLocked(now)
}

// Mark records a dispatch at now.
func (t *Throttle) Mark(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = now
	t.marked = true
}

// TryAcquire marks and returns true if a dispatch is due at now.
func (t *Throttle) TryAcquire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dueLocked(now) {
		return false
	}
	t.last = now
	t.marked = true
	return true
}

// Last returns the time of the previous dispatch and whether one happened.
func (t *Throttle) Last() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.marked
}

func (t *Throttle) dueLocked(now time.Time) bool {
	return !t.marked || now.Sub(t.last) >= t.interval
}
