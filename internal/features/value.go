package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	ValueEmpty ValueKind = iota
	ValueText
	ValueNumber
)

// Value is one user-supplied field: empty, text or number.
// The zero Value is empty.
type Value struct {
	kind ValueKind
	text string
	num  float64
}

func Empty() Value { return Value{} }

func Text(s string) Value { return Value{kind: ValueText, text: s} }

func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// FormValue converts an HTML form value. Blank input is empty.
func FormValue(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Empty()
	}
	return Text(s)
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsEmpty() bool { return v.kind == ValueEmpty }

// String renders the value the way a form would show it.
func (v Value) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Float coerces the value to a finite real number. It never panics; failures
// are reported as *CoercionError with an empty Field for the caller to fill.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case ValueNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, &CoercionError{Raw: v.String()}
		}
		return v.num, nil
	case ValueText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, &CoercionError{Raw: v.text}
		}
		return f, nil
	default:
		return 0, &CoercionError{}
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueText:
		return json.Marshal(v.text)
	case ValueNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Empty()
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	case '{', '[', 't', 'f':
		return fmt.Errorf("field value must be a string, number or null, got %s", b)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*v = Number(f)
		return nil
	}
}

// RawInput maps raw field names (model columns plus owner_txt) to values.
// Absent keys are treated as empty.
type RawInput map[string]Value

func (r RawInput) get(field string) Value {
	if r == nil {
		return Empty()
	}
	return r[field]
}
