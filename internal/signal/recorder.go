package signal

import (
	"fmt"

	"fortio.org/safecast"

	"comptrace/internal/trace"
)

// Recorder is a Host that writes every callback to a signal log instead of
// tracing it, so a run can be captured once and replayed later. Host
// integrations embed it in place of a Session; Convert uses it to re-encode
// logs.
type Recorder struct {
	enc   *Encoder
	clock trace.Clock
	err   error
}

// NewRecorder stamps signals with clock and writes them through enc.
func NewRecorder(enc *Encoder, clock trace.Clock) *Recorder {
	if clock == nil {
		clock = trace.NewSystemClock()
	}
	return &Recorder{enc: enc, clock: clock}
}

// Err returns the first encoding error.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) emit(sig Signal) {
	if r.err != nil {
		return
	}
	now, err := safecast.Conv[uint64](int64(r.clock.Now()))
	if err != nil {
		r.err = fmt.Errorf("recorder clock: %w", err)
		return
	}
	sig.Time = now
	r.err = r.enc.Encode(sig)
}

func (r *Recorder) OnResourceEnter(resourceID, originDir string) {
	r.emit(Signal{Kind: KindEnter, Resource: resourceID, Dir: originDir})
}

func (r *Recorder) OnResourceLeave() { r.emit(Signal{Kind: KindLeave}) }

func (r *Recorder) OnDeclFinish() { r.emit(Signal{Kind: KindDecl}) }

func (r *Recorder) OnPhaseBegin(p trace.Phase) {
	r.emit(Signal{Kind: KindPhase, Phase: p.Name, PassKind: p.Kind.String(), PassNumber: p.Number})
}

func (r *Recorder) OnLeafFinish(leaf trace.Leaf) {
	r.emit(Signal{
		Kind:      KindLeaf,
		Leaf:      leaf.Name,
		Resource:  leaf.Resource,
		Scope:     leaf.Scope,
		ScopeKind: leaf.ScopeKind.String(),
	})
}

// Close writes the end signal and flushes the log.
func (r *Recorder) Close() error {
	r.emit(Signal{Kind: KindEnd})
	if r.err != nil {
		return r.err
	}
	return r.enc.Flush()
}
