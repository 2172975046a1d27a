package trace

// Assembler is the ordered collection of finalized events for one session.
type Assembler struct {
	events  []Event
	drained bool
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{events: make([]Event, 0, 256)}
}

// Append adds ev. Appending after Drain is ignored.
func (a *Assembler) Append(ev Event) {
	if a.drained {
		return
	}
	a.events = append(a.events, ev)
}

// AppendAll adds evs in order.
func (a *Assembler) AppendAll(evs []Event) {
	for _, ev := range evs {
		a.Append(ev)
	}
}

// Len returns the number of events waiting to be drained.
func (a *Assembler) Len() int { return len(a.events) }

// Drain hands over every accumulated event. Later calls return an empty slice.
func (a *Assembler) Drain() []Event {
	out := a.events
	a.events = nil
	a.drained = true
	if out == nil {
		return []Event{}
	}
	return out
}
