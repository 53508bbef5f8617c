// Package testutil provides deterministic stand-ins for the sources of
// nondeterminism in the CLI and harness: run identifiers and wall time.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedRunIDGenerator returns sequential, predictable run identifiers.
//
// Production code uses random UUIDs; tests and golden snapshots need the
// same run to get the same ID every time. IDs look like
// "test-run-0000000000000001".
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int64
}

// NewFixedRunIDGenerator creates a generator with the given prefix.
// An empty prefix defaults to "test-run".
func NewFixedRunIDGenerator(prefix string) *FixedRunIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &FixedRunIDGenerator{prefix: prefix}
}

// NewRunID returns the next sequential identifier.
func (g *FixedRunIDGenerator) NewRunID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%016d", g.prefix, g.next)
}

// Reset restarts the sequence. After Reset, NewRunID returns the first ID again.
func (g *FixedRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 0
}

// SteppedTime is a deterministic time source. Each call to Now advances a
// fixed step from a base instant, so timestamps recorded during a test are
// reproducible.
//
// Thread-safety: Now is safe for concurrent use via internal mutex.
type SteppedTime struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// NewSteppedTime creates a time source starting at base, advancing by step
// on every call to Now. A zero step defaults to one second.
func NewSteppedTime(base time.Time, step time.Duration) *SteppedTime {
	if step == 0 {
		step = time.Second
	}
	return &SteppedTime{base: base, step: step}
}

// Now returns the next instant in the sequence. The first call returns base.
func (c *SteppedTime) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}
