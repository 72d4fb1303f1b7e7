package bytecode

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindNumber
	KindBool
	KindString
)

// String returns a human-readable name for Kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a runtime value on the VM stack. The set of kinds is closed:
// Nil, Number, Bool and String.
type Value struct {
	kind    Kind
	number  float64
	boolean bool
	str     string
}

// Nil is the nil value. The zero Value is also nil.
var Nil = Value{}

// NumberValue returns a Number value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, number: n}
}

// BoolValue returns a Bool value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// StringValue returns a String value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsString() bool { return v.kind == KindString }

// AsNumber returns the number held by v, or 0 if v is not a Number.
func (v Value) AsNumber() float64 { return v.number }

// AsBool returns the boolean held by v, or false if v is not a Bool.
func (v Value) AsBool() bool { return v.boolean }

// AsString returns the text held by v, or "" if v is not a String.
func (v Value) AsString() string { return v.str }

// Equal reports structural equality. Values of different kinds are never
// equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindNumber:
		return v.number == other.number
	case KindBool:
		return v.boolean == other.boolean
	case KindString:
		return v.str == other.str
	}
	return false
}

// String renders the value for display. Strings are not quoted.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.number)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindString:
		return v.str
	default:
		return "nil"
	}
}

// Inspect renders the value the way it would be written in source, so
// strings are quoted.
func (v Value) Inspect() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	return v.String()
}

// FormatNumber renders a float64 in its shortest round-tripping form:
// 7 rather than 7.000000.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
