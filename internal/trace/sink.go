package trace

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNoSink means no output target was selected.
	ErrNoSink = errors.New("no trace output selected")
	// ErrAmbiguousSink means both a file and a directory were selected.
	ErrAmbiguousSink = errors.New("trace output file and directory are mutually exclusive")
)

// Sink receives the finished event sequence of a session, once.
type Sink interface {
	WriteEvents(events []Event) error
	Close() error
}

// WriterSink serializes to an arbitrary writer.
type WriterSink struct {
	w      io.Writer
	format Format
	name   string
}

// NewWriterSink wraps w. FormatAuto writes Chrome JSON.
func NewWriterSink(w io.Writer, format Format) *WriterSink {
	if format == FormatAuto {
		format = FormatChrome
	}
	return &WriterSink{w: w, format: format}
}

// WriteEvents encodes events in the sink's format.
func (s *WriterSink) WriteEvents(events []Event) error {
	return WriteEvents(s.w, events, s.format)
}

// Close closes the writer if it implements io.Closer. Standard streams are
// left open.
func (s *WriterSink) Close() error {
	if s.w == os.Stdout || s.w == os.Stderr {
		return nil
	}
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Path returns the file the sink writes to, empty for plain writers.
func (s *WriterSink) Path() string { return s.name }

// Format returns the serialization format.
func (s *WriterSink) Format() Format { return s.format }

// SinkConfig selects where a session's trace goes. Exactly one of File and
// Dir must be set.
type SinkConfig struct {
	File   string // target file, "-" for stdout; may contain a XXXXXX placeholder
	Dir    string // directory receiving trace_XXXXXX.<ext>
	Format Format
}

// Validate reports ErrNoSink or ErrAmbiguousSink.
func (c SinkConfig) Validate() error {
	switch {
	case c.File == "" && c.Dir == "":
		return ErrNoSink
	case c.File != "" && c.Dir != "":
		return ErrAmbiguousSink
	}
	return nil
}

// uniqueMarker is replaced with a fresh ULID when the target file is created.
const uniqueMarker = "XXXXXX"

// DefaultFileName is the template used inside a target directory.
func DefaultFileName(format Format) string {
	return "trace_" + uniqueMarker + format.Ext()
}

// OpenSink resolves cfg to a file and creates it. Every error is fatal for
// the session: no event may be recorded without a place to write it.
func OpenSink(cfg SinkConfig, logger Logger) (*WriterSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = defaultLogger()
	}
	if cfg.File == "-" {
		return NewWriterSink(os.Stdout, cfg.Format), nil
	}

	target := cfg.File
	if cfg.Dir != "" {
		dir := cfg.Dir
		if !filepath.IsAbs(dir) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve trace directory %q: %w", dir, err)
			}
			logger.Warnf("trace directory %q is relative, using %q", dir, abs)
			dir = abs
		}
		target = filepath.Join(dir, DefaultFileName(cfg.Format.Resolve("")))
	}
	format := cfg.Format.Resolve(target)

	f, path, err := createTarget(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return &WriterSink{w: f, format: format, name: path}, nil
}

// createTarget creates path, substituting the last XXXXXX with a ULID. A
// templated name is created exclusively so concurrent sessions never share it.
func createTarget(path string) (*os.File, string, error) {
	idx := strings.LastIndex(path, uniqueMarker)
	if idx < 0 {
		f, err := os.Create(path)
		return f, path, err
	}
	for range 3 {
		id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
		if err != nil {
			return nil, "", err
		}
		name := path[:idx] + id.String() + path[idx+len(uniqueMarker):]
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("could not create a unique file from %s", path)
}
