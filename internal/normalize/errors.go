package normalize

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by FieldError.
var (
	ErrMalformedField = errors.New("malformed field")
	ErrOutOfRange     = errors.New("value too large for target type")
)

const maxQuotedValue = 64

// FieldError reports a wire value that does not match any accepted encoding
// for its target type. Field is the dotted path of the offending field.
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("normalize: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("normalize: %s: %s (got %s)", e.Field, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

func malformed(field string, raw []byte, reason string) error {
	return &FieldError{Field: field, Value: quote(raw), Reason: reason, Err: ErrMalformedField}
}

func outOfRange(field string, raw []byte) error {
	return &FieldError{Field: field, Value: quote(raw), Reason: ErrOutOfRange.Error(), Err: ErrOutOfRange}
}

func quote(raw []byte) string {
	if len(raw) > maxQuotedValue {
		return string(raw[:maxQuotedValue]) + "..."
	}
	return string(raw)
}
