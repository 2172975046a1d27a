package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format represents the output format for a trace.
type Format uint8

const (
	FormatAuto    Format = iota // pick by file extension
	FormatChrome                // Trace Event Format JSON, loadable by chrome://tracing and Perfetto
	FormatNDJSON                // newline-delimited JSON, one event per line
	FormatMsgpack               // msgpack Document
)

// String returns the flag spelling of f.
func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatChrome:
		return "chrome"
	case FormatNDJSON:
		return "ndjson"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// Ext returns the file extension used for f, dot included.
func (f Format) Ext() string {
	switch f {
	case FormatNDJSON:
		return ".ndjson"
	case FormatMsgpack:
		return ".mp"
	default:
		return ".json"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "chrome", "json":
		return FormatChrome, nil
	case "ndjson":
		return FormatNDJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|chrome|ndjson|msgpack)", s)
	}
}

// FormatForPath auto-detects the format from a file extension. Anything
// unrecognised is written as Chrome JSON.
func FormatForPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".mp"), strings.HasSuffix(path, ".msgpack"):
		return FormatMsgpack
	default:
		return FormatChrome
	}
}

// Resolve replaces FormatAuto with the format implied by path.
func (f Format) Resolve(path string) Format {
	if f == FormatAuto {
		return FormatForPath(path)
	}
	return f
}

// micros holds nanoseconds and is written as fractional microseconds, the
// unit the Trace Event Format expects.
type micros int64

func (m micros) MarshalJSON() ([]byte, error) {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Appendf(nil, "%s%d.%03d", sign, v/1000, v%1000), nil
}

func (m *micros) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*m = micros(math.Round(f * 1000))
	return nil
}

type chromeEvent struct {
	Name string `json:"name"`
	Cat  string `json:"cat"`
	Ph   string `json:"ph"`
	Ts   micros `json:"ts"`
	Dur  micros `json:"dur"`
	Pid  int    `json:"pid"`
	Tid  int    `json:"tid"`
	Args Attrs  `json:"args,omitempty"`
}

const chromeComplete = "X"

type ndjsonEvent struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Args  Attrs  `json:"args,omitempty"`
}

// Document is the msgpack representation of a trace.
type Document struct {
	Schema uint16        `msgpack:"schema"`
	Unit   string        `msgpack:"unit"`
	Events []PackedEvent `msgpack:"events"`
}

// PackedEvent is a single event inside a Document.
type PackedEvent struct {
	Name  string `msgpack:"name"`
	Cat   string `msgpack:"cat"`
	Start int64  `msgpack:"start"`
	End   int64  `msgpack:"end"`
	Args  Attrs  `msgpack:"args,omitempty"`
}

// documentSchema is bumped whenever Document changes shape.
const documentSchema uint16 = 1

// WriteEvents serializes events to w in the given format.
func WriteEvents(w io.Writer, events []Event, format Format) error {
	bw := bufio.NewWriter(w)
	var err error
	switch format {
	case FormatNDJSON:
		err = writeNDJSON(bw, events)
	case FormatMsgpack:
		err = writeMsgpack(bw, events)
	default:
		err = writeChrome(bw, events)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeChrome(w io.Writer, events []Event) error {
	pid := os.Getpid()
	if _, err := io.WriteString(w, "{\"traceEvents\":["); err != nil {
		return err
	}
	for i, ev := range events {
		delim := ",\n"
		if i == 0 {
			delim = "\n"
		}
		if _, err := io.WriteString(w, delim); err != nil {
			return fmt.Errorf("write event delimiter: %w", err)
		}
		data, err := json.Marshal(chromeEvent{
			Name: ev.Name,
			Cat:  ev.Category.String(),
			Ph:   chromeComplete,
			Ts:   micros(ev.Interval.Start),
			Dur:  micros(ev.Interval.Duration()),
			Pid:  pid,
			Tid:  pid,
			Args: ev.Attrs,
		})
		if err != nil {
			return fmt.Errorf("marshal event %q: %w", ev.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n],\"displayTimeUnit\":\"ns\"}\n")
	return err
}

func writeNDJSON(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(ndjsonEvent{
			Name:  ev.Name,
			Cat:   ev.Category.String(),
			Start: int64(ev.Interval.Start),
			End:   int64(ev.Interval.End),
			Args:  ev.Attrs,
		}); err != nil {
			return fmt.Errorf("encode event %q: %w", ev.Name, err)
		}
	}
	return nil
}

func writeMsgpack(w io.Writer, events []Event) error {
	doc := Document{
		Schema: documentSchema,
		Unit:   "ns",
		Events: make([]PackedEvent, len(events)),
	}
	for i, ev := range events {
		doc.Events[i] = PackedEvent{
			Name:  ev.Name,
			Cat:   ev.Category.String(),
			Start: int64(ev.Interval.Start),
			End:   int64(ev.Interval.End),
			Args:  ev.Attrs,
		}
	}
	return msgpack.NewEncoder(w).Encode(&doc)
}

// ReadEvents decodes a trace written by WriteEvents. Chrome traces written by
// other tools are accepted too; only complete ("X") events are kept.
func ReadEvents(r io.Reader, format Format) ([]Event, error) {
	switch format {
	case FormatNDJSON:
		return readNDJSON(r)
	case FormatMsgpack:
		return readMsgpack(r)
	default:
		return readChrome(r)
	}
}

func readChrome(r io.Reader) ([]Event, error) {
	var doc struct {
		TraceEvents []chromeEvent `json:"traceEvents"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode chrome trace: %w", err)
	}
	out := make([]Event, 0, len(doc.TraceEvents))
	for _, ce := range doc.TraceEvents {
		if ce.Ph != chromeComplete {
			continue
		}
		start := Timestamp(ce.Ts)
		out = append(out, Event{
			Name:     ce.Name,
			Category: categoryOrUnknown(ce.Cat),
			Interval: Interval{Start: start, End: start + Timestamp(ce.Dur)},
			Attrs:    ce.Args,
		})
	}
	return out, nil
}

func readNDJSON(r io.Reader) ([]Event, error) {
	var out []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ne ndjsonEvent
		if err := json.Unmarshal([]byte(text), &ne); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, Event{
			Name:     ne.Name,
			Category: categoryOrUnknown(ne.Cat),
			Interval: Interval{Start: Timestamp(ne.Start), End: Timestamp(ne.End)},
			Attrs:    ne.Args,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readMsgpack(r io.Reader) ([]Event, error) {
	var doc Document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack trace: %w", err)
	}
	if doc.Schema != documentSchema {
		return nil, fmt.Errorf("unsupported trace schema %d", doc.Schema)
	}
	out := make([]Event, len(doc.Events))
	for i, pe := range doc.Events {
		out[i] = Event{
			Name:     pe.Name,
			Category: categoryOrUnknown(pe.Cat),
			Interval: Interval{Start: Timestamp(pe.Start), End: Timestamp(pe.End)},
			Attrs:    pe.Args,
		}
	}
	return out, nil
}

func categoryOrUnknown(tag string) Category {
	c, err := ParseCategory(tag)
	if err != nil {
		return CategoryUnknown
	}
	return c
}
