// Package normalize converts loosely encoded wire values into strict typed
// values. The remote API renders the same logical field in several shapes
// (numbers as decimal strings, booleans as 0/1, collections as arrays or as
// maps keyed by index); each strategy here accepts exactly the enumerated
// shapes for its target type and rejects everything else with a FieldError.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"
)

// IsAbsent reports whether raw is missing or an explicit JSON null.
func IsAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Uint64 accepts a native non-negative integer or a base-10 string.
func Uint64(field string, raw json.RawMessage) (uint64, error) {
	return parseUint(field, raw, 64)
}

// Uint32 is Uint64 narrowed to 32 bits.
func Uint32(field string, raw json.RawMessage) (uint32, error) {
	v, err := parseUint(field, raw, 32)
	return uint32(v), err
}

// Uint8 is Uint64 narrowed to 8 bits.
func Uint8(field string, raw json.RawMessage) (uint8, error) {
	v, err := parseUint(field, raw, 8)
	return uint8(v), err
}

// Int64 accepts a native integer or a base-10 string, signed.
func Int64(field string, raw json.RawMessage) (int64, error) {
	text, err := numericText(field, raw)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, numError(field, raw, err)
	}
	return v, nil
}

// OptionalUint64 treats absent, null and boolean values as "no value".
// Any other shape goes through Uint64.
func OptionalUint64(field string, raw json.RawMessage) (uint64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if IsAbsent(raw) || bytes.Equal(raw, []byte("true")) || bytes.Equal(raw, []byte("false")) {
		return 0, false, nil
	}
	v, err := Uint64(field, raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Uint64ZeroAsNone is used for identifiers where "0" means "not set".
// Absent values also map to zero.
func Uint64ZeroAsNone(field string, raw json.RawMessage) (uint64, error) {
	if IsAbsent(raw) {
		return 0, nil
	}
	return Uint64(field, raw)
}

// Timestamp reads server epoch seconds. Zero maps to the zero time.Time so
// callers can test with IsZero.
func Timestamp(field string, raw json.RawMessage) (time.Time, error) {
	secs, err := Int64(field, raw)
	if err != nil {
		return time.Time{}, err
	}
	if secs == 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, 0).UTC(), nil
}

// Bool accepts true/false, the integers 0/1, or the strings "0"/"1".
func Bool(field string, raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", "1", `"1"`:
		return true, nil
	case "false", "0", `"0"`:
		return false, nil
	}
	if IsAbsent(raw) {
		return false, malformed(field, nil, "missing boolean")
	}
	return false, malformed(field, raw, "expected true, false, 0 or 1")
}

// OptionalBool is Bool for fields the protocol omits when unset.
func OptionalBool(field string, raw json.RawMessage) (bool, bool, error) {
	if IsAbsent(raw) {
		return false, false, nil
	}
	v, err := Bool(field, raw)
	if err != nil {
		return false, false, err
	}
	return v, true, nil
}

// String accepts a JSON string only.
func String(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if IsAbsent(raw) {
		return "", malformed(field, nil, "missing string")
	}
	if raw[0] != '"' {
		return "", malformed(field, raw, "expected string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(field, raw, "invalid string")
	}
	return s, nil
}

// OptionalString maps absent and null to the empty string.
func OptionalString(field string, raw json.RawMessage) (string, error) {
	if IsAbsent(raw) {
		return "", nil
	}
	return String(field, raw)
}

// Elems splits a collection-like field into its raw elements. Arrays are
// returned in order; maps contribute their values only, ordered by key
// (numerically when every key is an integer index); an empty string and an
// absent field both yield no elements.
func Elems(field string, raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if IsAbsent(raw) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, malformed(field, raw, "invalid array")
		}
		return elems, nil
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, malformed(field, raw, "invalid object")
		}
		keys := SortedKeys(m)
		elems := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			elems = append(elems, m[k])
		}
		return elems, nil
	case '"':
		if string(raw) == `""` {
			return nil, nil
		}
		return nil, malformed(field, raw, "expected array, object or empty string")
	default:
		return nil, malformed(field, raw, "expected array, object or empty string")
	}
}

// Seq applies elem to every element returned by Elems. The element path is
// field[i] so failures point at the offending entry.
func Seq[T any](field string, raw json.RawMessage, elem func(path string, raw json.RawMessage) (T, error)) ([]T, error) {
	elems, err := Elems(field, raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for i, e := range elems {
		v, err := elem(Index(field, i), e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FraudWarnings normalises the fraudwarnings field. A nil result means the
// field carried no warnings at all; a non-empty string becomes a single
// warning; arrays and maps contribute their string values.
func FraudWarnings(field string, raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if IsAbsent(raw) || string(raw) == `""` {
		return nil, nil
	}
	if raw[0] == '"' {
		s, err := String(field, raw)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	warnings, err := Seq(field, raw, String)
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// SortedKeys orders map keys numerically when all of them are unsigned
// integers, lexicographically otherwise.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	numeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.ParseUint(k, 10, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.ParseUint(keys[i], 10, 64)
			b, _ := strconv.ParseUint(keys[j], 10, 64)
			return a < b
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}

func parseUint(field string, raw json.RawMessage, bits int) (uint64, error) {
	text, err := numericText(field, raw)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		return 0, numError(field, raw, err)
	}
	return v, nil
}

// numericText extracts the digits of a number or a numeric string.
func numericText(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if IsAbsent(raw) {
		return "", malformed(field, nil, "missing number")
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", malformed(field, raw, "invalid string")
		}
		if s == "" {
			return "", malformed(field, raw, "expected a base-10 integer")
		}
		return s, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return string(raw), nil
	default:
		return "", malformed(field, raw, "expected an integer or a numeric string")
	}
}

func numError(field string, raw []byte, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return outOfRange(field, raw)
	}
	return malformed(field, raw, "expected a base-10 integer")
}
