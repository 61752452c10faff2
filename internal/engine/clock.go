package engine

import "sync/atomic"

// Clock is a monotonic logical clock for mutation ordering.
//
// Every committed stored write is stamped with a strictly increasing seq
// number from this clock. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Replay of the journal produces the identical order
// - Causal relationships between external and observer writes are explicit
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the evaluator's single-owner model means one goroutine typically
// calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used for replay to resume from the last journaled position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
