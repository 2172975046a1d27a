// Package signal records and replays the lifecycle callbacks a host process
// delivers to a trace session.
package signal

import (
	"fmt"

	"fortio.org/safecast"

	"comptrace/internal/trace"
)

// Kind identifies a host callback.
type Kind string

const (
	KindEnter Kind = "enter" // a resource was entered (file included)
	KindLeave Kind = "leave" // the innermost resource was left
	KindPhase Kind = "phase" // a phase (optimization pass) started
	KindDecl  Kind = "decl"  // a top-level declaration finished
	KindLeaf  Kind = "leaf"  // a leaf (function) finished
	KindEnd   Kind = "end"   // the host is done
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindEnter, KindLeave, KindPhase, KindDecl, KindLeaf, KindEnd:
		return true
	}
	return false
}

// Signal is one recorded host callback.
type Signal struct {
	Kind Kind   `json:"sig" msgpack:"sig"`
	Time uint64 `json:"t" msgpack:"t"` // nanoseconds since the host started

	Resource string `json:"id,omitempty" msgpack:"id,omitempty"`
	Dir      string `json:"dir,omitempty" msgpack:"dir,omitempty"`

	Phase      string `json:"phase,omitempty" msgpack:"phase,omitempty"`
	PassKind   string `json:"pass_kind,omitempty" msgpack:"pass_kind,omitempty"`
	PassNumber int    `json:"pass_number,omitempty" msgpack:"pass_number,omitempty"`

	Leaf      string `json:"leaf,omitempty" msgpack:"leaf,omitempty"`
	Scope     string `json:"scope,omitempty" msgpack:"scope,omitempty"`
	ScopeKind string `json:"scope_kind,omitempty" msgpack:"scope_kind,omitempty"`
}

// Timestamp converts the recorded time to a session timestamp.
func (s Signal) Timestamp() (trace.Timestamp, error) {
	ns, err := safecast.Conv[int64](s.Time)
	if err != nil {
		return 0, fmt.Errorf("signal time %d: %w", s.Time, err)
	}
	return trace.Timestamp(ns), nil
}

// Host receives replayed callbacks. *trace.Session and *Recorder implement it.
type Host interface {
	OnResourceEnter(resourceID, originDir string)
	OnResourceLeave()
	OnDeclFinish()
	OnPhaseBegin(p trace.Phase)
	OnLeafFinish(leaf trace.Leaf)
}

var (
	_ Host = (*trace.Session)(nil)
	_ Host = (*Recorder)(nil)
)

// Dispatch moves clock to the signal's time and invokes the matching host
// callback. KindEnd is not dispatched; ending is up to the caller.
func Dispatch(h Host, clock *trace.ManualClock, sig Signal) error {
	ts, err := sig.Timestamp()
	if err != nil {
		return err
	}
	if clock != nil {
		clock.Set(ts)
	}
	switch sig.Kind {
	case KindEnter:
		h.OnResourceEnter(sig.Resource, sig.Dir)
	case KindLeave:
		h.OnResourceLeave()
	case KindDecl:
		h.OnDeclFinish()
	case KindPhase:
		h.OnPhaseBegin(trace.Phase{
			Name:   sig.Phase,
			Kind:   trace.ParsePassKind(sig.PassKind),
			Number: sig.PassNumber,
		})
	case KindLeaf:
		h.OnLeafFinish(trace.Leaf{
			Name:      sig.Leaf,
			Resource:  sig.Resource,
			Scope:     sig.Scope,
			ScopeKind: trace.ParseScopeKind(sig.ScopeKind),
		})
	case KindEnd:
	default:
		return fmt.Errorf("unknown signal kind %q", sig.Kind)
	}
	return nil
}
