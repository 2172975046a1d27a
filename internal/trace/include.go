package trace

// includeID is an entry on the inclusion stack. A poisoned entry stands in for
// a circular re-entry: it keeps the stack balanced but never becomes an event.
type includeID struct {
	real     string
	poisoned bool
}

var poisoned = includeID{poisoned: true}

// IncludeTracker follows nested resource scopes (included files).
type IncludeTracker struct {
	clock Clock
	stack []includeID
	order []string // real ids in first-open order
	start map[string]Timestamp
	end   map[string]Timestamp
}

// NewIncludeTracker creates a tracker reading time from clock.
func NewIncludeTracker(clock Clock) *IncludeTracker {
	return &IncludeTracker{
		clock: clock,
		start: make(map[string]Timestamp),
		end:   make(map[string]Timestamp),
	}
}

// Open pushes id. It reports true when id is already open further down the
// stack, in which case a poisoned entry is pushed instead.
func (t *IncludeTracker) Open(id string) bool {
	now := t.clock.Now()
	if t.isOpen(id) {
		t.stack = append(t.stack, poisoned)
		return true
	}
	if _, ok := t.start[id]; !ok {
		t.start[id] = now
		t.order = append(t.order, id)
	}
	t.stack = append(t.stack, includeID{real: id})
	return false
}

// Close pops the top entry and records its first close time. It returns false
// if the stack was already empty.
func (t *IncludeTracker) Close() bool {
	if len(t.stack) == 0 {
		return false
	}
	return t.closeAt(t.clock.Now())
}

// closeAt pops the top entry as closed at now. The stack must not be empty.
func (t *IncludeTracker) closeAt(now Timestamp) bool {
	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	if top.poisoned {
		return true
	}
	if _, ok := t.end[top.real]; !ok {
		t.end[top.real] = now
	}
	return true
}

// DrainAll closes every entry still on the stack.
func (t *IncludeTracker) DrainAll() {
	for t.Close() {
	}
}

// Depth returns the number of open entries, poisoned ones included.
func (t *IncludeTracker) Depth() int { return len(t.stack) }

// Events returns one PREPROCESS event per resource that was both opened and
// closed, named through names.
func (t *IncludeTracker) Events(names *PathNormalizer) []Event {
	out := make([]Event, 0, len(t.order))
	for _, id := range t.order {
		end, closed := t.end[id]
		if !closed {
			continue
		}
		name := id
		if names != nil {
			name = names.DisplayName(id)
		}
		out = append(out, Event{
			Name:     name,
			Category: CategoryPreprocess,
			Interval: Interval{Start: t.start[id], End: end},
		})
	}
	return out
}

func (t *IncludeTracker) isOpen(id string) bool {
	_, started := t.start[id]
	_, ended := t.end[id]
	return started && !ended
}
