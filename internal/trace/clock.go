package trace

import "time"

// Timestamp is a count of nanoseconds since the session epoch.
type Timestamp int64

const (
	// Epsilon is the minimum separation between two intervals that would
	// otherwise share a boundary. Trace viewers mis-render events that start
	// and end at the exact same instant.
	Epsilon Timestamp = 1
	// LeafGap separates a leaf from whatever closed right before it.
	LeafGap = 3 * Epsilon
)

// Clock supplies timestamps relative to a fixed epoch.
type Clock interface {
	Now() Timestamp
}

// SystemClock reads the monotonic wall clock.
type SystemClock struct {
	epoch time.Time
	last  Timestamp
}

// NewSystemClock records the epoch and returns a clock anchored at it.
func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now(), last: -1}
}

// Epoch returns the recorded session start.
func (c *SystemClock) Epoch() time.Time { return c.epoch }

// Now returns nanoseconds since the epoch. Two calls never return the same value.
func (c *SystemClock) Now() Timestamp {
	now := Timestamp(time.Since(c.epoch).Nanoseconds())
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// ManualClock is driven explicitly, by replays and tests. Like SystemClock it
// never returns the same value twice: a reading taken before the clock has
// moved since the previous one is bumped by Epsilon.
type ManualClock struct {
	now  Timestamp
	last Timestamp
	read bool
}

// NewManualClock returns a clock positioned at start.
func NewManualClock(start Timestamp) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current position, bumped past the previous reading if
// needed.
func (c *ManualClock) Now() Timestamp {
	if c.read && c.now <= c.last {
		c.now = c.last + Epsilon
	}
	c.read = true
	c.last = c.now
	return c.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *ManualClock) Set(t Timestamp) {
	if t > c.now {
		c.now = t
	}
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d Timestamp) {
	if d > 0 {
		c.now += d
	}
}
