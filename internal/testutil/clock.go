package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant FrozenClock starts at unless told otherwise.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FrozenClock is a wall clock that only moves when Advance is called.
//
// Runs driven by a FrozenClock report <COMPLETEDIN::>0, which keeps golden
// token streams byte-identical between executions.
//
// Thread-safety: all methods are safe for concurrent use.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock stopped at start (Epoch if zero).
func NewFrozenClock(start time.Time) *FrozenClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FrozenClock{now: start}
}

// Now returns the current instant without advancing it.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
