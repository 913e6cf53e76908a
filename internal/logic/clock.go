package logic

import "sync/atomic"

// Clock hands out strictly increasing commit sequence numbers.
// The dispatcher stamps every queued event with Next() under its lock, so
// events with equal generation timestamps keep their commit order.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
