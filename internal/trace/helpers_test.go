package trace

import (
	"fmt"
	"testing"
)

type recordLogger struct {
	warnings []string
	debug    []string
}

func (l *recordLogger) Warnf(format string, v ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func (l *recordLogger) Debugf(format string, v ...interface{}) {
	l.debug = append(l.debug, fmt.Sprintf(format, v...))
}

// memSink keeps written events in memory.
type memSink struct {
	events []Event
	writes int
	closed bool
}

func (s *memSink) WriteEvents(events []Event) error {
	s.writes++
	s.events = append(s.events, events...)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func identity(p string) (string, error) { return p, nil }

func newTestSession(t *testing.T) (*Session, *ManualClock, *memSink, *recordLogger) {
	t.Helper()
	clock := NewManualClock(0)
	sink := &memSink{}
	logger := &recordLogger{}
	s, err := NewSession(sink, WithClock(clock), WithResolver(identity), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, clock, sink, logger
}

func namesOf(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Name
	}
	return out
}
