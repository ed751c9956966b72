package bytecode

import (
	"fmt"
	"sort"
)

// Opcode identifies an instruction. The numeric values are the tags used on
// the wire.
type Opcode uint8

const (
	// ========================================================================
	// Variables
	// ========================================================================

	OpVariableDeclareOnlySymbol Opcode = 0 // Declare a variable: <name:string>
	OpVariableDeclareWithAssign Opcode = 1 // Declare and pop initial value: <name:string>

	// ========================================================================
	// Stack
	// ========================================================================

	OpPop  Opcode = 2 // Discard top of stack
	OpPush Opcode = 3 // Push literal: <value:any>

	// ========================================================================
	// Arithmetic
	// ========================================================================

	OpAdd Opcode = 4 // Pop two, push sum
	OpSub Opcode = 5 // Pop two, push difference
	OpMul Opcode = 6 // Pop two, push product
	OpDiv Opcode = 7 // Pop two, push quotient
	OpMod Opcode = 8 // Pop two, push remainder

	OpReturn Opcode = 9 // Return from the current function

	// ========================================================================
	// Variable and array access
	// ========================================================================

	OpGetVariable     Opcode = 10 // Push variable value: <name:string>
	OpSetVariablePop  Opcode = 11 // Pop into variable: <name:string>
	OpSetArrayElement Opcode = 12 // Pop index and value, store into array: <name:string>
	OpGetArrayElement Opcode = 13 // Pop index, push element: <name:string>
	OpMakeArray       Opcode = 14 // Pop n values, push array: <n:long>

	// ========================================================================
	// Functions
	// ========================================================================

	OpCall            Opcode = 15 // Call function: <name:string>
	OpNop             Opcode = 16 // No operation
	OpFunctionDeclare Opcode = 17 // Declare function: <name:string> <size:long>

	// ========================================================================
	// Comparison and logic
	// ========================================================================

	OpEqualExpression    Opcode = 18
	OpNotEqualExpression Opcode = 19
	OpLtExpression       Opcode = 20
	OpLteExpression      Opcode = 21
	OpGtExpression       Opcode = 22
	OpGteExpression      Opcode = 23
	OpAndExpression      Opcode = 24
	OpOrExpression       Opcode = 25
	OpXorExpression      Opcode = 26

	// ========================================================================
	// Control flow
	// ========================================================================

	OpJumpRel Opcode = 27 // Relative jump: <offset:long>
	OpJumpAbs Opcode = 28 // Absolute jump: <target:long>

	OpPrint   Opcode = 29 // Pop and print
	OpPrintln Opcode = 30 // Pop and print with newline

	OpIfStatement      Opcode = 31 // Pop condition, skip when false: <offset:long>
	OpAssignExpression Opcode = 32 // Assign top of stack, keep it: <name:string>
	OpAssert           Opcode = 33 // Pop and abort when false

	// OpIValue marks an inline value in the VM's in-memory code vector. It is
	// never valid as an instruction tag in a compiled program.
	OpIValue Opcode = 34
)

// OpcodeInfo provides metadata about each opcode for decoding and listings.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Operands []Kind // Required operand kinds, in wire order
	Reserved bool   // Occupies a tag but is never decoded
}

var (
	symbolOperand = []Kind{KindString}
	longOperand   = []Kind{KindLong}
)

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Variables
	OpVariableDeclareOnlySymbol: {"VAR_DECLARE", symbolOperand, false},
	OpVariableDeclareWithAssign: {"VAR_DECLARE_ASSIGN", symbolOperand, false},

	// Stack
	OpPop:  {"POP", nil, false},
	OpPush: {"PUSH", []Kind{KindAny}, false},

	// Arithmetic
	OpAdd:    {"ADD", nil, false},
	OpSub:    {"SUB", nil, false},
	OpMul:    {"MUL", nil, false},
	OpDiv:    {"DIV", nil, false},
	OpMod:    {"MOD", nil, false},
	OpReturn: {"RETURN", nil, false},

	// Variable and array access
	OpGetVariable:     {"GET_VAR", symbolOperand, false},
	OpSetVariablePop:  {"SET_VAR_POP", symbolOperand, false},
	OpSetArrayElement: {"SET_ARRAY_ELEM", symbolOperand, false},
	OpGetArrayElement: {"GET_ARRAY_ELEM", symbolOperand, false},
	OpMakeArray:       {"MAKE_ARRAY", longOperand, false},

	// Functions
	OpCall:            {"CALL", symbolOperand, false},
	OpNop:             {"NOP", nil, false},
	OpFunctionDeclare: {"FUNC_DECLARE", []Kind{KindString, KindLong}, false},

	// Comparison and logic
	OpEqualExpression:    {"EQ", nil, false},
	OpNotEqualExpression: {"NE", nil, false},
	OpLtExpression:       {"LT", nil, false},
	OpLteExpression:      {"LE", nil, false},
	OpGtExpression:       {"GT", nil, false},
	OpGteExpression:      {"GE", nil, false},
	OpAndExpression:      {"AND", nil, false},
	OpOrExpression:       {"OR", nil, false},
	OpXorExpression:      {"XOR", nil, false},

	// Control flow
	OpJumpRel:          {"JUMP_REL", longOperand, false},
	OpJumpAbs:          {"JUMP_ABS", longOperand, false},
	OpPrint:            {"PRINT", nil, false},
	OpPrintln:          {"PRINTLN", nil, false},
	OpIfStatement:      {"IF", longOperand, false},
	OpAssignExpression: {"ASSIGN", symbolOperand, false},
	OpAssert:           {"ASSERT", nil, false},

	OpIValue: {"IVALUE", nil, true},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint8(op))}
}

// LookupOpcode maps a tag word to an opcode. Reserved opcodes are reported
// as found; callers decide whether to accept them.
func LookupOpcode(tag Word) (Opcode, bool) {
	if tag < 0 || tag > Word(OpIValue) {
		return 0, false
	}
	op := Opcode(tag)
	_, ok := opcodeInfoTable[op]
	return op, ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Arity returns the number of operand values the opcode takes.
func (op Opcode) Arity() int {
	return len(GetOpcodeInfo(op).Operands)
}

// OperandKinds returns the kinds required for each operand, in order.
// KindAny accepts every kind.
func (op Opcode) OperandKinds() []Kind {
	kinds := GetOpcodeInfo(op).Operands
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// IsJump returns true if the opcode carries a jump offset.
func (op Opcode) IsJump() bool {
	return op == OpJumpRel || op == OpJumpAbs || op == OpIfStatement
}

// IsReserved returns true if the opcode occupies a tag but never decodes.
func (op Opcode) IsReserved() bool {
	return GetOpcodeInfo(op).Reserved
}

// AllOpcodes returns every defined opcode, reserved ones included, in tag
// order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
