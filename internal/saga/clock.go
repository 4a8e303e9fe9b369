package saga

import "sync/atomic"

// Clock is a monotonic logical clock stamping recorded effects.
//
// Sequence numbers start at 1 and never repeat within a run, so traces are
// ordered without wall-clock time and identical across reruns.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
