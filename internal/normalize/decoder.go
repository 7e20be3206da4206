package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Join builds the dotted path of a nested field.
func Join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// Index builds the path of a collection element.
func Index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Decoder reads the fields of one JSON object through the strategies in this
// package. The first failure is kept and every later call becomes a no-op,
// so a record is parsed straight through and checked once with Err.
type Decoder struct {
	path   string
	fields map[string]json.RawMessage
	err    error
}

// NewDecoder prepares raw, which must be a JSON object, for field access.
func NewDecoder(path string, raw json.RawMessage) *Decoder {
	d := &Decoder{path: path}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		d.err = malformed(pathOrRoot(path), trimmed, "expected object")
		return d
	}
	if err := json.Unmarshal(trimmed, &d.fields); err != nil {
		d.err = malformed(pathOrRoot(path), trimmed, "invalid object")
	}
	return d
}

// Err returns the first failure seen by the decoder.
func (d *Decoder) Err() error { return d.err }

// Raw returns the undecoded value of name, nil when absent.
func (d *Decoder) Raw(name string) json.RawMessage { return d.fields[name] }

// Has reports whether name is present and not null.
func (d *Decoder) Has(name string) bool { return !IsAbsent(d.fields[name]) }

// Path returns the full path of name within the decoded object.
func (d *Decoder) Path(name string) string { return Join(d.path, name) }

func (d *Decoder) Uint64(name string) uint64 {
	return apply(d, name, Uint64)
}

func (d *Decoder) Uint32(name string) uint32 {
	return apply(d, name, Uint32)
}

func (d *Decoder) Uint8(name string) uint8 {
	return apply(d, name, Uint8)
}

func (d *Decoder) Int64(name string) int64 {
	return apply(d, name, Int64)
}

func (d *Decoder) Uint64ZeroAsNone(name string) uint64 {
	return apply(d, name, Uint64ZeroAsNone)
}

func (d *Decoder) Timestamp(name string) time.Time {
	return apply(d, name, Timestamp)
}

func (d *Decoder) Bool(name string) bool {
	return apply(d, name, Bool)
}

func (d *Decoder) String(name string) string {
	return apply(d, name, String)
}

func (d *Decoder) OptionalString(name string) string {
	return apply(d, name, OptionalString)
}

func (d *Decoder) FraudWarnings(name string) []string {
	return apply(d, name, FraudWarnings)
}

// Enum reads a small integer field and rejects values for which known is false.
func (d *Decoder) Enum(name string, known func(uint8) bool) uint8 {
	v := d.Uint8(name)
	if d.err == nil && !known(v) {
		d.err = malformed(d.Path(name), d.fields[name], "unknown enum value")
		return 0
	}
	return v
}

// OptionalUint64 returns the value and whether it was set.
func (d *Decoder) OptionalUint64(name string) (uint64, bool) {
	if d.err != nil {
		return 0, false
	}
	v, ok, err := OptionalUint64(d.Path(name), d.fields[name])
	if err != nil {
		d.err = err
	}
	return v, ok
}

// OptionalBool returns the value and whether it was set.
func (d *Decoder) OptionalBool(name string) (bool, bool) {
	if d.err != nil {
		return false, false
	}
	v, ok, err := OptionalBool(d.Path(name), d.fields[name])
	if err != nil {
		d.err = err
	}
	return v, ok
}

// DecodeSeq reads a collection-like field of d through elem.
func DecodeSeq[T any](d *Decoder, name string, elem func(path string, raw json.RawMessage) (T, error)) []T {
	if d.err != nil {
		return nil
	}
	out, err := Seq(d.Path(name), d.fields[name], elem)
	if err != nil {
		d.err = err
	}
	return out
}

func apply[T any](d *Decoder, name string, fn func(string, json.RawMessage) (T, error)) T {
	var zero T
	if d.err != nil {
		return zero
	}
	v, err := fn(d.Path(name), d.fields[name])
	if err != nil {
		d.err = err
		return zero
	}
	return v
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
