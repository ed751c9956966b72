package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header. Each line starts
// with the instruction's word offset in hex. Jump operands are printed as
// decoded; they count VM code slots, not words.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, %d words\n", len(p), p.Width()))

	offset := 0
	for _, ins := range p {
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, ins.String()))
		offset += ins.Width()
	}

	return sb.String()
}

// DisassembleToLines returns one line per instruction, without the header.
func (p Program) DisassembleToLines() []string {
	lines := make([]string, 0, len(p))
	offset := 0
	for _, ins := range p {
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, ins.String()))
		offset += ins.Width()
	}
	return lines
}

// FormatWords renders a word stream as "[w0, w1, ...]".
func FormatWords(words []Word) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, w := range words {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(w, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}
