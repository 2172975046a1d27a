// Package trace turns the lifecycle signals of a compilation into a timeline of
// named, categorized intervals for a trace viewer.
//
// # Trackers
//
// A Session owns three trackers fed by host signals:
//
//   - IncludeTracker: nested resource scopes (included files). A resource
//     re-entered while still open is pushed as a poisoned entry that keeps the
//     stack balanced but never becomes an event.
//   - PhaseCoalescer: the host only reports "phase X starts"; each phase ends
//     where the next begins. The last phase is never closed and is not written.
//   - ScopeMerger: leaves (functions) plus scope spans; adjacent leaves under
//     the same scope share one span.
//
// Display names of resources come from PathNormalizer, which strips the
// include directory and falls back to the full id when a name is ambiguous.
//
// # Session end
//
// End drains the inclusion stack, then appends inclusion events, phases,
// scope spans and leaves to the Assembler in that order. The output is not
// sorted by start time.
//
//	sink, err := trace.OpenSink(trace.SinkConfig{Dir: "/tmp/traces"}, nil)
//	s, err := trace.NewSession(sink)
//	s.OnResourceEnter("/src/main.c", "")
//	...
//	err = s.End()
//
// # Formats
//
//   - FormatChrome: Trace Event Format JSON (chrome://tracing, Perfetto)
//   - FormatNDJSON: one event per line, nanoseconds
//   - FormatMsgpack: compact Document
package trace
