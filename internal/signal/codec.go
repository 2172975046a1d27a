package signal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is the encoding of a signal log.
type Format uint8

const (
	FormatNDJSON  Format = iota // one JSON object per line
	FormatMsgpack               // a stream of msgpack maps
)

// FormatForPath picks the log format from a file extension.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, ".mp") || strings.HasSuffix(path, ".msgpack") {
		return FormatMsgpack
	}
	return FormatNDJSON
}

// Decoder yields signals one by one. Next returns io.EOF after the last one.
type Decoder interface {
	Next() (Signal, error)
}

// NewDecoder reads signals from r.
func NewDecoder(r io.Reader, format Format) Decoder {
	if format == FormatMsgpack {
		return &msgpackDecoder{dec: msgpack.NewDecoder(bufio.NewReader(r))}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ndjsonDecoder{sc: sc}
}

type ndjsonDecoder struct {
	sc   *bufio.Scanner
	line int
}

func (d *ndjsonDecoder) Next() (Signal, error) {
	for d.sc.Scan() {
		d.line++
		text := strings.TrimSpace(d.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var sig Signal
		if err := json.Unmarshal([]byte(text), &sig); err != nil {
			return Signal{}, fmt.Errorf("line %d: %w", d.line, err)
		}
		if !sig.Kind.Valid() {
			return Signal{}, fmt.Errorf("line %d: unknown signal kind %q", d.line, sig.Kind)
		}
		return sig, nil
	}
	if err := d.sc.Err(); err != nil {
		return Signal{}, err
	}
	return Signal{}, io.EOF
}

type msgpackDecoder struct {
	dec *msgpack.Decoder
	n   int
}

func (d *msgpackDecoder) Next() (Signal, error) {
	var sig Signal
	if err := d.dec.Decode(&sig); err != nil {
		if errors.Is(err, io.EOF) {
			return Signal{}, io.EOF
		}
		return Signal{}, fmt.Errorf("signal %d: %w", d.n+1, err)
	}
	d.n++
	if !sig.Kind.Valid() {
		return Signal{}, fmt.Errorf("signal %d: unknown signal kind %q", d.n, sig.Kind)
	}
	return sig, nil
}

// Encoder writes signals in a log format.
type Encoder struct {
	bw *bufio.Writer
	js *json.Encoder
	mp *msgpack.Encoder
}

// NewEncoder writes signals to w. Call Flush when done.
func NewEncoder(w io.Writer, format Format) *Encoder {
	bw := bufio.NewWriter(w)
	e := &Encoder{bw: bw}
	if format == FormatMsgpack {
		e.mp = msgpack.NewEncoder(bw)
	} else {
		e.js = json.NewEncoder(bw)
	}
	return e
}

// Encode appends sig.
func (e *Encoder) Encode(sig Signal) error {
	if e.mp != nil {
		return e.mp.Encode(&sig)
	}
	return e.js.Encode(&sig)
}

// Flush writes buffered signals.
func (e *Encoder) Flush() error { return e.bw.Flush() }
