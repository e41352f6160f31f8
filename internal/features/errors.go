package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	ErrMetadataMalformed   = errors.New("metadata malformed")
)

// CoercionError reports a value that could not be read as a real number.
type CoercionError struct {
	Field string
	Raw   string
}

func (e *CoercionError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("%s: value is empty", e.fieldName())
	}
	return fmt.Sprintf("%s: %q is not a number", e.fieldName(), e.Raw)
}

func (e *CoercionError) fieldName() string {
	if e.Field == "" {
		return "value"
	}
	return e.Field
}

// ValidationError is the validation failure report: every model column that
// was missing, non-numeric or (in strict mode) outside its choice set.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "Missing/invalid: " + strings.Join(e.Fields, ", ")
}

// Has reports whether field is named in the report.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
