package signal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"comptrace/internal/trace"
)

type quietLogger struct{ warnings int }

func (l *quietLogger) Warnf(string, ...interface{})  { l.warnings++ }
func (l *quietLogger) Debugf(string, ...interface{}) {}

const sampleLog = `# recorded by hand
{"sig":"enter","t":0,"id":"main.c"}
{"sig":"enter","t":100,"id":"/inc/a/x.h","dir":"/inc/a"}
{"sig":"leave","t":200}
{"sig":"decl","t":300}
{"sig":"phase","t":310,"phase":"*warn_unused_result","pass_kind":"gimple","pass_number":4}
{"sig":"leaf","t":400,"leaf":"int f()","id":"/inc/a/x.h","scope":"ns","scope_kind":"namespace"}
{"sig":"phase","t":500,"phase":"einline","pass_kind":"gimple","pass_number":5}
{"sig":"end","t":600}
`

func newSession(t *testing.T, buf *bytes.Buffer) (*trace.Session, *trace.ManualClock) {
	t.Helper()
	clock := trace.NewManualClock(0)
	s, err := trace.NewSession(
		trace.NewWriterSink(buf, trace.FormatNDJSON),
		trace.WithClock(clock),
		trace.WithResolver(func(p string) (string, error) { return p, nil }),
		trace.WithLogger(&quietLogger{}),
	)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, clock
}

func TestReplayNDJSON(t *testing.T) {
	var out bytes.Buffer
	s, clock := newSession(t, &out)

	n, err := Replay(context.Background(), s, clock, NewDecoder(strings.NewReader(sampleLog), FormatNDJSON))
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 8 {
		t.Fatalf("replayed %d signals, want 8", n)
	}
	events, err := trace.ReadEvents(&out, trace.FormatNDJSON)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	want := []trace.Event{
		{Name: "main.c", Category: trace.CategoryPreprocess, Interval: trace.Interval{Start: 0, End: 300}},
		{Name: "x.h", Category: trace.CategoryPreprocess, Interval: trace.Interval{Start: 100, End: 200}},
		{Name: "*warn_unused_result", Category: trace.CategoryGimplePass, Interval: trace.Interval{Start: 311, End: 500}, Attrs: trace.Attrs{{Key: "static_pass_number", Value: "4"}}},
		{Name: "ns", Category: trace.CategoryNamespace, Interval: trace.Interval{Start: 302, End: 401}},
		{Name: "int f()", Category: trace.CategoryFunction, Interval: trace.Interval{Start: 303, End: 400}, Attrs: trace.Attrs{{Key: "file", Value: "x.h"}}},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatNDJSON, FormatMsgpack} {
		var log bytes.Buffer
		clock := trace.NewManualClock(0)
		rec := NewRecorder(NewEncoder(&log, format), clock)
		rec.OnResourceEnter("main.c", "")
		clock.Advance(50)
		rec.OnDeclFinish()
		clock.Advance(10)
		rec.OnPhaseBegin(trace.Phase{Name: "ipa-cp", Kind: trace.PassIPA, Number: 9})
		clock.Advance(10)
		rec.OnLeafFinish(trace.Leaf{Name: "S::get", Resource: "main.c", Scope: "S", ScopeKind: trace.ScopeStruct})
		clock.Advance(10)
		rec.OnPhaseBegin(trace.Phase{Name: "final", Kind: trace.PassRTL, Number: 10})
		if err := rec.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		var out bytes.Buffer
		s, replayClock := newSession(t, &out)
		if _, err := Replay(context.Background(), s, replayClock, NewDecoder(&log, format)); err != nil {
			t.Fatalf("Replay(%d): %v", format, err)
		}
		events, err := trace.ReadEvents(&out, trace.FormatNDJSON)
		if err != nil {
			t.Fatalf("ReadEvents: %v", err)
		}
		got := make([]string, len(events))
		for i, ev := range events {
			got[i] = ev.Category.String() + ":" + ev.Name
		}
		want := []string{"PREPROCESS:main.c", "IPA_PASS:ipa-cp", "STRUCT:S", "FUNCTION:S::get"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("format %d events mismatch (-want +got):\n%s", format, diff)
		}
	}
}

func TestDecoderRejectsUnknownKind(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`{"sig":"explode","t":1}`), FormatNDJSON)
	if _, err := dec.Next(); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("Next error = %v, want a line-numbered error", err)
	}
}

func TestReplayEndsSessionOnError(t *testing.T) {
	var out bytes.Buffer
	s, clock := newSession(t, &out)
	log := `{"sig":"enter","t":1,"id":"main.c"}
not json
`
	_, err := Replay(context.Background(), s, clock, NewDecoder(strings.NewReader(log), FormatNDJSON))
	if err == nil {
		t.Fatalf("Replay should fail on a malformed line")
	}
	if !s.Ended() {
		t.Fatalf("session not ended")
	}
	events, readErr := trace.ReadEvents(&out, trace.FormatNDJSON)
	if readErr != nil || len(events) != 1 {
		t.Fatalf("partial trace = %v, %v; want main.c", events, readErr)
	}
}

func TestReplayHonoursCancellation(t *testing.T) {
	var out bytes.Buffer
	s, clock := newSession(t, &out)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, s, clock, NewDecoder(strings.NewReader(sampleLog), FormatNDJSON))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Replay error = %v, want context.Canceled", err)
	}
	if !s.Ended() {
		t.Fatalf("session not ended")
	}
}

func TestConvertKeepsTrace(t *testing.T) {
	var packed bytes.Buffer
	n, err := Convert(context.Background(), NewDecoder(strings.NewReader(sampleLog), FormatNDJSON), NewEncoder(&packed, FormatMsgpack))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if n != 8 {
		t.Fatalf("converted %d signals, want 8", n)
	}

	replayInto := func(dec Decoder) []trace.Event {
		t.Helper()
		var out bytes.Buffer
		s, clock := newSession(t, &out)
		if _, err := Replay(context.Background(), s, clock, dec); err != nil {
			t.Fatalf("Replay: %v", err)
		}
		events, err := trace.ReadEvents(&out, trace.FormatNDJSON)
		if err != nil {
			t.Fatalf("ReadEvents: %v", err)
		}
		return events
	}
	want := replayInto(NewDecoder(strings.NewReader(sampleLog), FormatNDJSON))
	got := replayInto(NewDecoder(&packed, FormatMsgpack))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("converted log traces differently (-want +got):\n%s", diff)
	}
}

func TestReplaySameTimeSignalsGetDistinctIntervals(t *testing.T) {
	log := `{"sig":"enter","t":0,"id":"main.c"}
{"sig":"decl","t":50}
{"sig":"phase","t":50,"phase":"a","pass_kind":"rtl","pass_number":1}
{"sig":"phase","t":50,"phase":"b","pass_kind":"rtl","pass_number":2}
{"sig":"phase","t":50,"phase":"c","pass_kind":"rtl","pass_number":3}
{"sig":"leaf","t":50,"leaf":"f","id":"main.c"}
{"sig":"leaf","t":50,"leaf":"g","id":"main.c"}
{"sig":"leaf","t":50,"leaf":"h","id":"main.c"}
{"sig":"end","t":50}
`
	var out bytes.Buffer
	s, clock := newSession(t, &out)
	if _, err := Replay(context.Background(), s, clock, NewDecoder(strings.NewReader(log), FormatNDJSON)); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	events, err := trace.ReadEvents(&out, trace.FormatNDJSON)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6", len(events))
	}
	seen := make(map[trace.Interval]string)
	for _, ev := range events {
		if other, dup := seen[ev.Interval]; dup {
			t.Fatalf("%s and %s share interval %+v", other, ev.Name, ev.Interval)
		}
		seen[ev.Interval] = ev.Name
	}
	if events[2].Interval.Start <= events[1].Interval.End {
		t.Fatalf("phase b %+v does not start after a %+v", events[2].Interval, events[1].Interval)
	}
}
