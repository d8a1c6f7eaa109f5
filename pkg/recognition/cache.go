package recognition

import "sync/atomic"

// Cache holds the latest recognition batch. Store swaps the whole batch, so
// a Load never observes a mix of two batches. Concurrent stores resolve to
// last-writer-wins.
type Cache struct {
	current atomic.Pointer[Batch]
}

// Store replaces the current batch. The caller must not modify b afterwards.
func (c *Cache) Store(b *Batch) {
	c.current.Store(b)
}

// Load returns the current batch, or nil if none has arrived yet.
func (c *Cache) Load() *Batch {
	return c.current.Load()
}
