package core

import (
	"fmt"
	"maps"
	"strconv"
)

// Kind discriminates the value variants a Scope entry may hold.
type Kind int

const (
	// KindText is a plain string value.
	KindText Kind = iota
	// KindNumber is a float64 value.
	KindNumber
	// KindRecord is a structured map value.
	KindRecord
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is the tagged union stored in a Scope: text, number or a structured
// record. The zero Value is empty text. Values are immutable once
// constructed; Record copies its map on both construction and access so a
// stored record cannot be mutated behind the Scope's back.
type Value struct {
	kind   Kind
	text   string
	number float64
	record map[string]any
}

// Text constructs a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number constructs a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }

// Record constructs a structured record value from a copy of m.
func Record(m map[string]any) Value {
	cp := make(map[string]any, len(m))
	maps.Copy(cp, m)
	return Value{kind: KindRecord, record: cp}
}

// Kind returns the variant tag of the value.
func (v Value) Kind() Kind { return v.kind }

// AsText returns the string payload and whether the value is text.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.number, v.kind == KindNumber }

// AsRecord returns a copy of the record payload and whether the value is a record.
func (v Value) AsRecord() (map[string]any, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	cp := make(map[string]any, len(v.record))
	maps.Copy(cp, v.record)
	return cp, true
}

// Native unwraps the value into the closest native Go representation
// (string, float64 or map[string]any). Used when handing scope state to
// prompt templates.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindRecord:
		cp, _ := v.AsRecord()
		return cp
	default:
		return v.text
	}
}

// String renders the value for logs and final output.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindRecord:
		return fmt.Sprintf("%v", v.record)
	default:
		return v.text
	}
}
