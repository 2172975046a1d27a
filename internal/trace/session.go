package trace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Masterminds/log-go"
)

// ErrSessionEnded is returned by End after the trace has been written.
var ErrSessionEnded = errors.New("trace session already ended")

// Logger is the subset of log.Logger the session reports through.
type Logger interface {
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

func defaultLogger() Logger { return log.Current }

// Resolver maps a path to its canonical absolute form.
type Resolver func(path string) (string, error)

// RealPath resolves symlinks and makes path absolute, like realpath(3). A
// path that does not exist on this machine (a log replayed elsewhere) is only
// made absolute and cleaned.
func RealPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return abs, nil
	}
	return resolved, err
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithResolver replaces RealPath.
func WithResolver(r Resolver) Option {
	return func(s *Session) { s.resolve = r }
}

// WithLogger replaces log.Current.
func WithLogger(l Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session owns every tracker of one traced run. It is driven synchronously by
// host signals and is not safe for concurrent use.
type Session struct {
	sink    Sink
	clock   Clock
	resolve Resolver
	logger  Logger

	names    *PathNormalizer
	includes *IncludeTracker
	phases   *PhaseCoalescer
	scopes   *ScopeMerger
	out      *Assembler

	preprocessed bool      // the first declaration has closed the inclusion stack
	cursor       Timestamp // end of the last leaf, or of the last closed resource
	ended        bool
	written      int
}

// NewSession starts a session writing to sink. The sink is required.
func NewSession(sink Sink, opts ...Option) (*Session, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	s := &Session{
		sink:    sink,
		resolve: RealPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewSystemClock()
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	s.names = NewPathNormalizer()
	s.includes = NewIncludeTracker(s.clock)
	s.phases = NewPhaseCoalescer(s.clock)
	s.scopes = NewScopeMerger()
	s.out = NewAssembler()
	return s, nil
}

// Names exposes the session's path normalizer.
func (s *Session) Names() *PathNormalizer { return s.names }

// Ended reports whether End has run.
func (s *Session) Ended() bool { return s.ended }

// Written returns the number of events handed to the sink by End.
func (s *Session) Written() int { return s.written }

// pseudo-files reported by the preprocessor that have no inclusion scope.
var pseudoResources = map[string]struct{}{
	"<command-line>": {},
	"<built-in>":     {},
}

// OnResourceEnter records that the host started reading resourceID, found
// through originDir (may be empty).
func (s *Session) OnResourceEnter(resourceID, originDir string) {
	if s.ended || resourceID == "" {
		return
	}
	if _, ok := pseudoResources[resourceID]; ok {
		return
	}
	if s.includes.Open(resourceID) {
		s.logger.Debugf("circular inclusion of %s ignored", resourceID)
		return
	}
	if originDir == "" {
		return
	}
	realDir, dirErr := s.resolve(originDir)
	realFile, fileErr := s.resolve(resourceID)
	switch {
	case dirErr != nil && fileErr != nil:
		s.logger.Warnf("can't resolve %q or %q: %v", resourceID, originDir, errors.Join(fileErr, dirErr))
		return
	case dirErr != nil:
		s.logger.Warnf("can't resolve include directory %q: %v", originDir, dirErr)
		return
	case fileErr != nil:
		s.logger.Warnf("can't resolve %q: %v", resourceID, fileErr)
		return
	}
	s.names.Alias(resourceID, realFile)
	if err := s.names.Register(realFile, realDir); err != nil {
		s.logger.Warnf("%v", err)
	}
}

// OnResourceLeave records that the innermost open resource finished.
func (s *Session) OnResourceLeave() {
	if s.ended {
		return
	}
	if s.includes.Depth() == 0 {
		s.logger.Warnf("resource leave without a matching enter")
		return
	}
	now := s.clock.Now()
	s.includes.closeAt(now)
	s.cursor = now + LeafGap
}

// OnDeclFinish marks the end of preprocessing: the first finished
// declaration closes whatever is still on the inclusion stack.
func (s *Session) OnDeclFinish() {
	if s.ended || s.preprocessed {
		return
	}
	s.preprocessed = true
	s.drainIncludes()
}

// OnPhaseBegin records the start of a phase; the previous one ends here.
func (s *Session) OnPhaseBegin(p Phase) {
	if s.ended {
		return
	}
	s.phases.Begin(p)
}

// OnLeafFinish records a finished leaf. Its start is inferred from the end of
// whatever finished before it.
func (s *Session) OnLeafFinish(leaf Leaf) {
	if s.ended {
		return
	}
	now := s.clock.Now()
	start := min(s.cursor+LeafGap, now)
	s.cursor = now
	s.scopes.Record(leaf, Interval{Start: start, End: now})
}

// End closes the session: drain the inclusion stack, then collect inclusion
// events, coalesced phases, scope spans and leaves in that order, and write
// them to the sink.
func (s *Session) End() error {
	if s.ended {
		return ErrSessionEnded
	}
	s.ended = true

	s.drainIncludes()
	s.out.AppendAll(s.includes.Events(s.names))
	s.out.AppendAll(s.phases.Events())
	s.out.AppendAll(s.scopes.ScopeEvents())
	s.out.AppendAll(s.scopes.LeafEvents(s.names))

	if p, ok := s.phases.Pending(); ok {
		s.logger.Debugf("last phase %q has no end and is not written", p.Name)
	}
	if conflicts := s.names.Conflicts(); len(conflicts) > 0 {
		s.logger.Debugf("ambiguous display names kept as full paths: %v", conflicts)
	}

	events := s.out.Drain()
	s.written = len(events)
	writeErr := s.sink.WriteEvents(events)
	closeErr := s.sink.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write trace: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trace: %w", closeErr)
	}
	return nil
}

func (s *Session) drainIncludes() {
	// каждое закрытие берёт своё время, вложенные ресурсы не совпадают по концу
	for s.includes.Depth() > 0 {
		now := s.clock.Now()
		s.includes.closeAt(now)
		s.cursor = now
	}
}
