package replay

import (
	"time"

	"comptrace/internal/trace"
)

// Status captures the progress state of one signal log.
type Status string

const (
	// StatusQueued indicates the log is waiting to be replayed.
	StatusQueued Status = "queued"
	// StatusWorking indicates the log is being replayed.
	StatusWorking Status = "working"
	// StatusDone indicates the trace was written.
	StatusDone Status = "done"
	// StatusError indicates the log failed.
	StatusError Status = "error"
)

// Event reports progress for a log.
type Event struct {
	File    string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Request describes a replay run.
type Request struct {
	Logs     []string         // signal logs, one session each
	Sink     trace.SinkConfig // where traces go; several logs need Dir or a XXXXXX template
	Jobs     int              // parallel sessions, GOMAXPROCS when <= 0
	Progress ProgressSink
	Logger   trace.Logger
	Resolver trace.Resolver // defaults to trace.RealPath
}

// Output is the outcome of replaying one log.
type Output struct {
	Log     string
	Trace   string // written file, empty for stdout
	Signals int
	Events  int
	Elapsed time.Duration
	Err     error
}

// Result holds one Output per requested log, in request order.
type Result struct {
	Outputs []Output
}

// Failed returns the outputs that ended with an error.
func (r Result) Failed() []Output {
	var out []Output
	for _, o := range r.Outputs {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
