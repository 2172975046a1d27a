package trace

// Leaf is the smallest traced unit, typically one parsed function.
type Leaf struct {
	Name      string
	Resource  string    // resource the leaf was read from
	Scope     string    // enclosing construct, empty at top level
	ScopeKind ScopeKind // meaningful only with Scope
}

type leafRecord struct {
	name     string
	resource string
	span     Interval
}

// ScopeMerger records leaves and folds adjacent leaves that share an enclosing
// scope into a single scope span.
type ScopeMerger struct {
	leaves       []leafRecord
	scopes       []Event
	lastHadScope bool
}

// NewScopeMerger creates an empty merger.
func NewScopeMerger() *ScopeMerger {
	return &ScopeMerger{}
}

// Record appends leaf with its interval. Only a leaf directly following a
// leaf of the same scope extends that scope's span; the same scope name seen
// again after a different scope opens a new span.
func (m *ScopeMerger) Record(leaf Leaf, span Interval) {
	m.leaves = append(m.leaves, leafRecord{name: leaf.Name, resource: leaf.Resource, span: span})

	if leaf.Scope == "" {
		m.lastHadScope = false
		return
	}
	if n := len(m.scopes); n > 0 && m.lastHadScope && m.scopes[n-1].Name == leaf.Scope {
		m.scopes[n-1].Interval.End = span.End + Epsilon
	} else {
		m.scopes = append(m.scopes, Event{
			Name:     leaf.Scope,
			Category: leaf.ScopeKind.Category(),
			Interval: Interval{Start: span.Start - Epsilon, End: span.End + Epsilon},
		})
	}
	m.lastHadScope = true
}

// ScopeEvents returns the merged scope spans.
func (m *ScopeMerger) ScopeEvents() []Event {
	return append([]Event(nil), m.scopes...)
}

// LeafEvents returns one FUNCTION event per recorded leaf. The "file"
// attribute carries the leaf's resource, named through names.
func (m *ScopeMerger) LeafEvents(names *PathNormalizer) []Event {
	out := make([]Event, 0, len(m.leaves))
	for _, lf := range m.leaves {
		file := lf.resource
		if names != nil {
			file = names.DisplayName(lf.resource)
		}
		out = append(out, Event{
			Name:     lf.name,
			Category: CategoryFunction,
			Interval: lf.span,
			Attrs:    Attrs{{Key: "file", Value: file}},
		})
	}
	return out
}
