package trace

import "strconv"

// Phase is a unit of host work that only ever reports its start.
type Phase struct {
	Name   string
	Kind   PassKind
	Number int // static pass number reported by the host
}

type phaseSpan struct {
	phase Phase
	span  Interval
}

// PhaseCoalescer turns a sequence of "phase started" signals into closed,
// non-overlapping intervals. A phase ends where the next one begins.
type PhaseCoalescer struct {
	clock   Clock
	current *phaseSpan
	closed  []phaseSpan
}

// NewPhaseCoalescer creates a coalescer reading time from clock.
func NewPhaseCoalescer(clock Clock) *PhaseCoalescer {
	return &PhaseCoalescer{clock: clock}
}

// Begin closes the running phase, if any, and opens p.
func (c *PhaseCoalescer) Begin(p Phase) {
	now := c.clock.Now()
	if c.current != nil {
		c.current.span.End = max(now, c.current.span.Start)
		c.closed = append(c.closed, *c.current)
	}
	c.current = &phaseSpan{phase: p, span: Interval{Start: now + Epsilon, End: now + Epsilon}}
}

// Pending returns the phase that is still running. It is never emitted: the
// last phase of a session has no successor to infer its end from.
func (c *PhaseCoalescer) Pending() (Phase, bool) {
	if c.current == nil {
		return Phase{}, false
	}
	return c.current.phase, true
}

// Events returns the closed phases in the order they ran.
func (c *PhaseCoalescer) Events() []Event {
	out := make([]Event, 0, len(c.closed))
	for _, ps := range c.closed {
		out = append(out, Event{
			Name:     ps.phase.Name,
			Category: ps.phase.Kind.Category(),
			Interval: ps.span,
			Attrs:    Attrs{{Key: "static_pass_number", Value: strconv.Itoa(ps.phase.Number)}},
		})
	}
	return out
}
