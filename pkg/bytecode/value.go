package bytecode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Word is the unit of the wire format: one little-endian 8-byte group.
type Word = int64

// Kind identifies the variant of a tagged value. The numeric values are the
// tags used on the wire.
type Kind uint8

const (
	KindLong     Kind = 0
	KindString   Kind = 1
	KindBool     Kind = 2
	KindArray    Kind = 3
	KindFunction Kind = 4
	KindNull     Kind = 5

	// KindAny is never encoded. It marks an operand slot that accepts a value
	// of any kind.
	KindAny Kind = 0xFF
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLong:
		return "long"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindNull:
		return "null"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k := KindLong; k <= KindNull; k++ {
		if k.String() == name {
			return k, true
		}
	}
	if name == KindAny.String() {
		return KindAny, true
	}
	return 0, false
}

// Value is a decoded tagged value. The set of implementations is closed:
// Long, String, Bool, Array, Function and Null.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Width returns the number of words the value occupies on the wire,
	// including its tag word.
	Width() int

	String() string

	isValue()
}

// Long is a 64-bit integer literal.
type Long int64

// String is a sequence of Unicode scalar values.
type String string

// Bool is a boolean literal. On the wire 0 means true and 1 means false.
type Bool bool

// Array is an ordered sequence of values, possibly nested.
type Array []Value

// Function stands for a runtime closure. It has no wire encoding.
type Function struct {
	Name string
}

// Null is the zero-payload sentinel value. It has no wire encoding.
type Null struct{}

func (Long) Kind() Kind     { return KindLong }
func (String) Kind() Kind   { return KindString }
func (Bool) Kind() Kind     { return KindBool }
func (Array) Kind() Kind    { return KindArray }
func (Function) Kind() Kind { return KindFunction }
func (Null) Kind() Kind     { return KindNull }

func (Long) Width() int { return 2 }
func (Bool) Width() int { return 2 }

func (s String) Width() int { return 2 + utf8.RuneCountInString(string(s)) }

func (a Array) Width() int {
	n := 2
	for _, v := range a {
		n += v.Width()
	}
	return n
}

// Function and Null have no wire encoding. Their width is the single tag
// slot they would occupy, and Instruction.Validate rejects them.
func (Function) Width() int { return 1 }
func (Null) Width() int     { return 1 }

func (l Long) String() string   { return strconv.FormatInt(int64(l), 10) }
func (s String) String() string { return strconv.Quote(string(s)) }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (Null) String() string     { return "null" }

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (f Function) String() string {
	if f.Name == "" {
		return "<function>"
	}
	return "<function " + f.Name + ">"
}

// Depth returns how deeply arrays nest inside v. Scalars have depth 0 and a
// flat array has depth 1.
func Depth(v Value) int {
	arr, ok := v.(Array)
	if !ok {
		return 0
	}
	deepest := 0
	for _, e := range arr {
		if d := Depth(e); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

func (Long) isValue()     {}
func (String) isValue()   {}
func (Bool) isValue()     {}
func (Array) isValue()    {}
func (Function) isValue() {}
func (Null) isValue()     {}
