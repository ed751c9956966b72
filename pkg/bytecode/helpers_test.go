package bytecode

import "testing"

// appendValue encodes v in wire format. It is the inverse of DecodeValue and
// exists only to build fixtures.
func appendValue(dst []Word, v Value) []Word {
	switch v := v.(type) {
	case Long:
		return append(dst, Word(KindLong), Word(v))
	case String:
		runes := []rune(string(v))
		dst = append(dst, Word(KindString), Word(len(runes)))
		for _, r := range runes {
			dst = append(dst, Word(r))
		}
		return dst
	case Bool:
		if v {
			return append(dst, Word(KindBool), 0)
		}
		return append(dst, Word(KindBool), 1)
	case Array:
		dst = append(dst, Word(KindArray), Word(len(v)))
		for _, e := range v {
			dst = appendValue(dst, e)
		}
		return dst
	default:
		return append(dst, Word(v.Kind()))
	}
}

func appendInstruction(dst []Word, ins Instruction) []Word {
	dst = append(dst, Word(ins.Op))
	for _, v := range ins.Operands {
		dst = appendValue(dst, v)
	}
	return dst
}

func encodeProgram(p Program) []Word {
	var words []Word
	for _, ins := range p {
		words = appendInstruction(words, ins)
	}
	return words
}

func mustInstruction(t testing.TB, op Opcode, operands ...Value) Instruction {
	t.Helper()
	ins, err := NewInstruction(op, operands...)
	if err != nil {
		t.Fatalf("NewInstruction(%s): %v", op, err)
	}
	return ins
}

// nestedArray returns depth levels of single-element arrays around leaf.
func nestedArray(depth int, leaf Value) Value {
	v := leaf
	for i := 0; i < depth; i++ {
		v = Array{v}
	}
	return v
}

// sampleOperands returns a valid operand list for every non-reserved opcode.
func sampleOperands(op Opcode) []Value {
	var out []Value
	for _, k := range op.OperandKinds() {
		switch k {
		case KindString:
			out = append(out, String("sym"))
		case KindLong:
			out = append(out, Long(-7))
		case KindAny:
			out = append(out, Array{Long(1), String("x"), Bool(false)})
		}
	}
	return out
}
