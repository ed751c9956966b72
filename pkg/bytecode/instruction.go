package bytecode

import (
	"fmt"
	"strings"
)

// Instruction is one decoded opcode together with its operands.
type Instruction struct {
	Op       Opcode
	Operands []Value
}

// NewInstruction builds an instruction and checks its operands against the
// opcode's requirements.
func NewInstruction(op Opcode, operands ...Value) (Instruction, error) {
	ins := Instruction{Op: op}
	if len(operands) > 0 {
		ins.Operands = operands
	}
	if err := ins.Validate(); err != nil {
		return Instruction{}, err
	}
	return ins, nil
}

// Validate reports whether the instruction is well formed: a known,
// non-reserved opcode with exactly the operands that opcode requires, each
// of which has a wire encoding.
func (i Instruction) Validate() error {
	info, ok := opcodeInfoTable[i.Op]
	if !ok || info.Reserved {
		return fmt.Errorf("%w: opcode %d", ErrUnknownTag, uint8(i.Op))
	}
	if len(i.Operands) != len(info.Operands) {
		return fmt.Errorf("%w: %s takes %d operands, got %d",
			ErrTypeMismatch, info.Name, len(info.Operands), len(i.Operands))
	}
	for n, want := range info.Operands {
		if got := i.Operands[n]; got == nil || !operandAccepts(want, got) {
			return fmt.Errorf("%w: %s operand %d: want %s, got %s",
				ErrTypeMismatch, info.Name, n+1, want, kindOf(got))
		}
		if k, ok := tagOnly(i.Operands[n]); ok {
			return fmt.Errorf("%w: %s operand %d contains %s",
				ErrUnsupportedValueTag, info.Name, n+1, k)
		}
	}
	return nil
}

// tagOnly finds a Function or Null anywhere inside v. Those kinds exist in
// the VM but never on the wire.
func tagOnly(v Value) (Kind, bool) {
	switch v := v.(type) {
	case Function, Null:
		return v.Kind(), true
	case Array:
		for _, e := range v {
			if k, ok := tagOnly(e); ok {
				return k, true
			}
		}
	}
	return 0, false
}

// Width returns the number of words the instruction occupies on the wire.
func (i Instruction) Width() int {
	n := 1
	for _, v := range i.Operands {
		n += v.Width()
	}
	return n
}

// Operand returns the n-th operand, or nil if there is none.
func (i Instruction) Operand(n int) Value {
	if n < 0 || n >= len(i.Operands) {
		return nil
	}
	return i.Operands[n]
}

// Symbol returns the first string operand: the variable or function name
// for opcodes that take one.
func (i Instruction) Symbol() (string, bool) {
	for _, v := range i.Operands {
		if s, ok := v.(String); ok {
			return string(s), true
		}
	}
	return "", false
}

// Int returns the last long operand: the offset, element count or function
// size for opcodes that take one.
func (i Instruction) Int() (int64, bool) {
	for n := len(i.Operands) - 1; n >= 0; n-- {
		if l, ok := i.Operands[n].(Long); ok {
			return int64(l), true
		}
	}
	return 0, false
}

// String renders the instruction as NAME followed by its operands.
func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Op.String()
	}
	var sb strings.Builder
	sb.WriteString(i.Op.String())
	for _, v := range i.Operands {
		sb.WriteByte(' ')
		sb.WriteString(v.String())
	}
	return sb.String()
}

// Program is the ordered instruction sequence of one compiled unit.
type Program []Instruction

// Width returns the number of words the program occupies on the wire.
func (p Program) Width() int {
	n := 0
	for _, ins := range p {
		n += ins.Width()
	}
	return n
}

// Depth returns the deepest array nesting among all operands.
func (p Program) Depth() int {
	deepest := 0
	for _, ins := range p {
		for _, v := range ins.Operands {
			if d := Depth(v); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

// Offsets returns the starting word offset of each instruction.
func (p Program) Offsets() []int {
	offsets := make([]int, len(p))
	at := 0
	for n, ins := range p {
		offsets[n] = at
		at += ins.Width()
	}
	return offsets
}

func operandAccepts(want Kind, v Value) bool {
	return want == KindAny || v.Kind() == want
}

func kindOf(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
