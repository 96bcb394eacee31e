package value

import "strconv"

type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindBool
	KindString
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INTEGER"
	case KindBool:
		return "BOOLEAN"
	case KindString:
		return "STRING"
	case KindReturn:
		return "RETURN_VALUE"
	default:
		return "UNKNOWN"
	}
}

// Value is the runtime value shared by the VM and the evaluator. The zero
// Value is Null, which is also what unused VM stack slots hold.
type Value struct {
	Kind Kind   `cbor:"1,keyasint,omitempty"`
	Int  int64  `cbor:"2,keyasint,omitempty"`
	B    bool   `cbor:"3,keyasint,omitempty"`
	Str  string `cbor:"4,keyasint,omitempty"`
	// Inner holds the wrapped value of a Return.
	Inner *Value `cbor:"5,keyasint,omitempty"`
}

func Null() Value { return Value{Kind: KindNull} }
func Int(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Return wraps v so the evaluator can unwind out of nested blocks.
func Return(v Value) Value {
	return Value{Kind: KindReturn, Inner: &v}
}

// Unwrap returns the value carried by a Return, or v itself.
func Unwrap(v Value) Value {
	if v.Kind == KindReturn && v.Inner != nil {
		return *v.Inner
	}
	return v
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.B == b.B
	case KindInt:
		return a.Int == b.Int
	case KindString:
		return a.Str == b.Str
	case KindReturn:
		return Equal(Unwrap(a), Unwrap(b))
	default:
		return false
	}
}

// Inspect renders v the way the CLI prints results.
func (v Value) Inspect() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindString:
		return v.Str
	case KindReturn:
		return Unwrap(v).Inspect()
	default:
		return "<unknown>"
	}
}

func (v Value) String() string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	return v.Inspect()
}
