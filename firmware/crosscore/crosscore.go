// Package crosscore holds the lock-free primitives shared by the input context and the motion context.
// Each value has exactly one writer and one reader.
package crosscore

import "sync/atomic"

// Channel is a capacity-one signal with no payload. Posting while a signal is already pending is a no-op:
// whatever the signal is about has been published before posting, so only the first pending signal matters.
type Channel struct {
	pending atomic.Bool
}

// Post raises the signal without blocking. It returns false when a signal was already pending and the post
// was dropped.
func (c *Channel) Post() bool {
	return c.pending.CompareAndSwap(false, true)
}

// TryConsume takes the pending signal, if any, without blocking
func (c *Channel) TryConsume() bool {
	return c.pending.Swap(false)
}

// Pending reports whether a signal is waiting, without consuming it
func (c *Channel) Pending() bool {
	return c.pending.Load()
}

// Published is a single-writer snapshot. The writer replaces the whole value; readers always see a complete
// value, never a partially written one.
type Published[T any] struct {
	v atomic.Pointer[T]
}

// Store replaces the published value
func (p *Published[T]) Store(v T) {
	p.v.Store(&v)
}

// Load returns the latest published value, or the zero value if nothing was stored yet
func (p *Published[T]) Load() T {
	if v := p.v.Load(); v != nil {
		return *v
	}
	var zero T
	return zero
}
