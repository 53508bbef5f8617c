package search

import "sync/atomic"

// Clock is the monotonic iteration counter for a search session.
//
// Every queue entry and every diagnostic event is stamped with a strictly
// increasing iteration number from this clock, which makes traces replayable
// and the fairness tiebreak of the active queue well defined.
//
// Thread-safety: Clock is safe for concurrent use, though the engine's
// single-owner design means only the search loop calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific iteration.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next iteration number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current iteration without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
