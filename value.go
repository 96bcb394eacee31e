package slate

import "github.com/xirelogy/go-slate/internal/value"

// ValueKind mirrors the runtime kinds for convenient inspection.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueInt
	ValueBool
	ValueString
)

// Value is a result produced by a program run. The zero Value is null.
type Value struct {
	v value.Value
}

func wrapValue(v value.Value) Value {
	return Value{v: value.Unwrap(v)}
}

// Kind reports the underlying value kind.
func (v Value) Kind() ValueKind {
	switch v.v.Kind {
	case value.KindInt:
		return ValueInt
	case value.KindBool:
		return ValueBool
	case value.KindString:
		return ValueString
	default:
		return ValueNull
	}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.v.IsNull()
}

// Int returns the integer value when the kind matches.
func (v Value) Int() (int64, bool) {
	if v.v.Kind != value.KindInt {
		return 0, false
	}
	return v.v.Int, true
}

// Bool returns the boolean value when the kind matches.
func (v Value) Bool() (bool, bool) {
	if v.v.Kind != value.KindBool {
		return false, false
	}
	return v.v.B, true
}

// String returns the string value when the kind matches.
func (v Value) String() (string, bool) {
	if v.v.Kind != value.KindString {
		return "", false
	}
	return v.v.Str, true
}

// Raw returns a Go representation of the value: nil, int64, bool or string.
func (v Value) Raw() any {
	switch v.v.Kind {
	case value.KindInt:
		return v.v.Int
	case value.KindBool:
		return v.v.B
	case value.KindString:
		return v.v.Str
	default:
		return nil
	}
}

// Inspect renders the value the way the CLI prints it.
func (v Value) Inspect() string {
	return v.v.Inspect()
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	return value.Equal(v.v, other.v)
}

func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "int"
	case ValueBool:
		return "bool"
	case ValueString:
		return "string"
	default:
		return "null"
	}
}
