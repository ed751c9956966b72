package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	var p Program

	output := p.Disassemble()

	if output != "; 0 instructions, 0 words\n" {
		t.Errorf("Disassemble() = %q", output)
	}
}

func TestDisassembleSimple(t *testing.T) {
	p := Program{
		{Op: OpPush, Operands: []Value{Long(42)}},
		{Op: OpPrint},
		{Op: OpFunctionDeclare, Operands: []Value{String("foo"), Long(5)}},
	}

	want := "; 3 instructions, 12 words\n" +
		"0000  PUSH 42\n" +
		"0003  PRINT\n" +
		"0004  FUNC_DECLARE \"foo\" 5\n"

	if got := p.Disassemble(); got != want {
		t.Errorf("Disassemble() =\n%s\nwant\n%s", got, want)
	}
}

func TestDisassembleWithName(t *testing.T) {
	p := Program{{Op: OpReturn}}

	output := p.DisassembleWithName("main")

	if !strings.HasPrefix(output, "; === main ===\n") {
		t.Error("Missing name header")
	}
	if !strings.Contains(output, "0000  RETURN") {
		t.Error("Missing RETURN line")
	}
}

func TestDisassembleNestedValues(t *testing.T) {
	p := Program{{Op: OpPush, Operands: []Value{Array{String("a"), Array{Bool(true)}, Array{}}}}}

	output := p.Disassemble()

	if !strings.Contains(output, `PUSH ["a", [true], []]`) {
		t.Errorf("nested array rendered as:\n%s", output)
	}
}

func TestDisassembleJumpsPrintRawOperand(t *testing.T) {
	p := Program{
		{Op: OpIfStatement, Operands: []Value{Long(3)}},
		{Op: OpJumpRel, Operands: []Value{Long(-2)}},
	}

	lines := p.DisassembleToLines()

	if lines[0] != "0000  IF 3" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "0003  JUMP_REL -2" {
		t.Errorf("lines[1] = %q", lines[1])
	}
}

func TestDisassembleToLines(t *testing.T) {
	prog, err := DecodeProgram([]Word{16, 3, 0, 1, 3, 0, 2, 4, 9})
	if err != nil {
		t.Fatalf("DecodeProgram error: %v", err)
	}

	lines := prog.DisassembleToLines()

	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d", len(lines))
	}
	wantPrefixes := []string{"0000", "0001", "0004", "0007", "0008"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("lines[%d] = %q, want offset %s", i, lines[i], prefix)
		}
	}
}

func TestDisassembleAllOpcodes(t *testing.T) {
	// Every opcode disassembles with its name
	for _, op := range AllOpcodes() {
		if op.IsReserved() {
			continue
		}
		p := Program{mustInstruction(t, op, sampleOperands(op)...)}

		output := p.Disassemble()

		info := GetOpcodeInfo(op)
		if !strings.Contains(output, "0000  "+info.Name) {
			t.Errorf("Disassembly of %s missing opcode name", info.Name)
		}
	}
}

func TestFormatWords(t *testing.T) {
	tests := []struct {
		words []Word
		want  string
	}{
		{nil, "[]"},
		{[]Word{16}, "[16]"},
		{[]Word{3, 0, -42}, "[3, 0, -42]"},
	}

	for _, tt := range tests {
		if got := FormatWords(tt.words); got != tt.want {
			t.Errorf("FormatWords(%v) = %q, want %q", tt.words, got, tt.want)
		}
	}
}
