package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Category classifies an event for the trace viewer.
type Category uint8

const (
	CategoryUnknown Category = iota
	// CategoryPreprocess covers the time a resource spent on the inclusion stack.
	CategoryPreprocess
	// Optimization pass categories, one per PassKind.
	CategoryGimplePass
	CategoryRTLPass
	CategorySimpleIPAPass
	CategoryIPAPass
	// CategoryFunction is a single parsed function (a leaf).
	CategoryFunction
	// Lexical scope categories, one per ScopeKind.
	CategoryNamespace
	CategoryStruct
)

var categoryTags = [...]string{
	CategoryUnknown:       "UNKNOWN",
	CategoryPreprocess:    "PREPROCESS",
	CategoryGimplePass:    "GIMPLE_PASS",
	CategoryRTLPass:       "RTL_PASS",
	CategorySimpleIPAPass: "SIMPLE_IPA_PASS",
	CategoryIPAPass:       "IPA_PASS",
	CategoryFunction:      "FUNCTION",
	CategoryNamespace:     "NAMESPACE",
	CategoryStruct:        "STRUCT",
}

// String returns the stable tag written to traces.
func (c Category) String() string {
	if int(c) < len(categoryTags) {
		return categoryTags[c]
	}
	return categoryTags[CategoryUnknown]
}

// IsPass reports whether c is one of the optimization pass categories.
func (c Category) IsPass() bool {
	return c >= CategoryGimplePass && c <= CategoryIPAPass
}

// IsScope reports whether c is one of the lexical scope categories.
func (c Category) IsScope() bool {
	return c == CategoryNamespace || c == CategoryStruct
}

// ParseCategory converts a tag back to a Category.
func ParseCategory(s string) (Category, error) {
	for i, tag := range categoryTags {
		if strings.EqualFold(tag, s) {
			return Category(i), nil
		}
	}
	return CategoryUnknown, fmt.Errorf("invalid category: %q", s)
}

// PassKind distinguishes optimization passes.
type PassKind uint8

const (
	PassUnknown PassKind = iota
	PassGimple
	PassRTL
	PassSimpleIPA
	PassIPA
)

// Category maps the pass kind onto its event category.
func (k PassKind) Category() Category {
	switch k {
	case PassGimple:
		return CategoryGimplePass
	case PassRTL:
		return CategoryRTLPass
	case PassSimpleIPA:
		return CategorySimpleIPAPass
	case PassIPA:
		return CategoryIPAPass
	default:
		return CategoryUnknown
	}
}

// String returns the lowercase tag used in signal logs.
func (k PassKind) String() string {
	switch k {
	case PassGimple:
		return "gimple"
	case PassRTL:
		return "rtl"
	case PassSimpleIPA:
		return "simple_ipa"
	case PassIPA:
		return "ipa"
	default:
		return "unknown"
	}
}

// ParsePassKind converts a signal log tag to a PassKind. Unknown tags map to
// PassUnknown rather than failing: the host may know more pass kinds than we do.
func ParsePassKind(s string) PassKind {
	switch strings.ToLower(s) {
	case "gimple", "gimple_pass":
		return PassGimple
	case "rtl", "rtl_pass":
		return PassRTL
	case "simple_ipa", "simple_ipa_pass":
		return PassSimpleIPA
	case "ipa", "ipa_pass":
		return PassIPA
	default:
		return PassUnknown
	}
}

// ScopeKind distinguishes the construct enclosing a leaf.
type ScopeKind uint8

const (
	ScopeNone ScopeKind = iota
	ScopeNamespace
	ScopeStruct // also unions and classes
)

// Category maps the scope kind onto its event category.
func (k ScopeKind) Category() Category {
	switch k {
	case ScopeNamespace:
		return CategoryNamespace
	case ScopeStruct:
		return CategoryStruct
	default:
		return CategoryUnknown
	}
}

// String returns the lowercase tag used in signal logs.
func (k ScopeKind) String() string {
	switch k {
	case ScopeNamespace:
		return "namespace"
	case ScopeStruct:
		return "struct"
	default:
		return ""
	}
}

// ParseScopeKind converts a signal log tag to a ScopeKind.
func ParseScopeKind(s string) ScopeKind {
	switch strings.ToLower(s) {
	case "namespace":
		return ScopeNamespace
	case "struct", "union", "record", "class":
		return ScopeStruct
	default:
		return ScopeNone
	}
}

// Interval is a closed time span. Start <= End.
type Interval struct {
	Start Timestamp
	End   Timestamp
}

// Duration returns End - Start.
func (iv Interval) Duration() Timestamp { return iv.End - iv.Start }

// Attr is a single metadata entry.
type Attr struct {
	Key   string
	Value string
}

// Attrs is an ordered key/value mapping attached to an event.
type Attrs []Attr

// Get returns the value stored under key.
func (a Attrs) Get(key string) (string, bool) {
	for _, kv := range a {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the attributes as an object, keeping insertion order.
func (a Attrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of strings, keeping document order.
func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attrs: expected object, got %v", tok)
	}
	var out Attrs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attrs: expected key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, Attr{Key: key, Value: fmt.Sprint(raw)})
	}
	*a = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Attrs(nil)
	_ msgpack.CustomDecoder = (*Attrs)(nil)
)

// EncodeMsgpack writes the attributes as a msgpack map in insertion order.
func (a Attrs) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(a)); err != nil {
		return err
	}
	for _, kv := range a {
		if err := enc.EncodeString(kv.Key); err != nil {
			return err
		}
		if err := enc.EncodeString(kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack map of strings.
func (a *Attrs) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n <= 0 {
		*a = nil
		return nil
	}
	out := make(Attrs, 0, n)
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeString()
		if err != nil {
			return err
		}
		out = append(out, Attr{Key: k, Value: v})
	}
	*a = out
	return nil
}

// Event is a finalized, named and categorized interval.
type Event struct {
	Name     string
	Category Category
	Interval Interval
	Attrs    Attrs // optional
}
