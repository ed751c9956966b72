package bytecode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDepth is the array nesting limit used when none is configured.
const DefaultMaxDepth = 64

// Decoder turns word streams into values, instructions and programs.
// A Decoder is immutable and safe for concurrent use.
type Decoder struct {
	maxDepth int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxDepth bounds how deeply arrays may nest. A top-level array has
// depth 1. Values below 1 select DefaultMaxDepth.
func WithMaxDepth(depth int) DecoderOption {
	return func(d *Decoder) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		d.maxDepth = depth
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxDepth returns the configured array nesting limit.
func (d *Decoder) MaxDepth() int {
	return d.maxDepth
}

var defaultDecoder = NewDecoder()

// DecodeValue decodes one tagged value with the default decoder.
func DecodeValue(words []Word, cursor int) (Value, int, error) {
	return defaultDecoder.DecodeValue(words, cursor)
}

// DecodeOpcode decodes one instruction with the default decoder.
func DecodeOpcode(words []Word, cursor int) (Instruction, int, error) {
	return defaultDecoder.DecodeOpcode(words, cursor)
}

// DecodeProgram decodes a whole stream with the default decoder.
func DecodeProgram(words []Word) (Program, error) {
	return defaultDecoder.DecodeProgram(words)
}

// DecodeValue decodes the tagged value starting at words[cursor] and returns
// it with the number of words consumed.
func (d *Decoder) DecodeValue(words []Word, cursor int) (Value, int, error) {
	if err := checkCursor(words, cursor); err != nil {
		return nil, 0, err
	}
	r := &wordReader{words: words, pos: cursor}
	v, err := d.readValue(r)
	if err != nil {
		return nil, 0, err
	}
	return v, r.pos - cursor, nil
}

// DecodeOpcode decodes the instruction starting at words[cursor] and returns
// it with the number of words consumed.
func (d *Decoder) DecodeOpcode(words []Word, cursor int) (Instruction, int, error) {
	if err := checkCursor(words, cursor); err != nil {
		return Instruction{}, 0, err
	}
	r := &wordReader{words: words, pos: cursor}
	ins, err := d.readInstruction(r)
	if err != nil {
		return Instruction{}, 0, err
	}
	return ins, r.pos - cursor, nil
}

// DecodeProgram decodes every instruction in words. The first error aborts
// the decode and no instructions are returned. An empty stream decodes to an
// empty program.
func (d *Decoder) DecodeProgram(words []Word) (Program, error) {
	r := &wordReader{words: words}
	var prog Program
	for r.pos < len(words) {
		ins, err := d.readInstruction(r)
		if err != nil {
			return nil, err
		}
		prog = append(prog, ins)
	}
	return prog, nil
}

func checkCursor(words []Word, cursor int) error {
	if cursor < 0 || cursor > len(words) {
		return decodeErrorf(ErrTruncatedInput, cursor, "cursor outside stream of %d words", len(words))
	}
	return nil
}

// ---------------------------------------------------------------------------
// wordReader: bounds-checked cursor over a word slice
// ---------------------------------------------------------------------------

type wordReader struct {
	words []Word
	pos   int
}

func (r *wordReader) remaining() int {
	return len(r.words) - r.pos
}

// next reads one word. what names the expected datum for error messages.
func (r *wordReader) next(what string) (Word, error) {
	if r.pos >= len(r.words) {
		return 0, decodeErrorf(ErrTruncatedInput, r.pos, "expected %s, stream ends after %d words", what, len(r.words))
	}
	w := r.words[r.pos]
	r.pos++
	return w, nil
}

// length reads a non-negative length word.
func (r *wordReader) length(what string) (int64, error) {
	at := r.pos
	n, err := r.next(what + " length")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, decodeErrorf(ErrInvalidLength, at, "%s length %d", what, n)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

func (d *Decoder) readInstruction(r *wordReader) (Instruction, error) {
	start := r.pos
	tag, err := r.next("opcode tag")
	if err != nil {
		return Instruction{}, err
	}

	op, ok := LookupOpcode(tag)
	if !ok {
		return Instruction{}, tagErrorf(ErrUnknownTag, start, tag, "opcode tag %d", tag)
	}
	info := opcodeInfoTable[op]
	if info.Reserved {
		return Instruction{}, tagErrorf(ErrUnknownTag, start, tag, "opcode tag %d (%s) is reserved", tag, info.Name)
	}

	ins := Instruction{Op: op}
	if len(info.Operands) > 0 {
		ins.Operands = make([]Value, 0, len(info.Operands))
	}
	for n, want := range info.Operands {
		at := r.pos
		v, err := d.readValue(r)
		if err != nil {
			return Instruction{}, fmt.Errorf("%s operand %d: %w", info.Name, n+1, err)
		}
		if !operandAccepts(want, v) {
			return Instruction{}, tagErrorf(ErrTypeMismatch, at, r.words[at], "%s operand %d: want %s, got %s",
				info.Name, n+1, want, v.Kind())
		}
		ins.Operands = append(ins.Operands, v)
	}
	return ins, nil
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// arrayFrame is an array whose elements are still being decoded.
type arrayFrame struct {
	elems Array
	want  int
}

// readValue decodes one value. Arrays push a frame onto an explicit stack
// and their elements are decoded by the same loop, so nesting depth costs
// heap, not goroutine stack, and is capped at d.maxDepth.
func (d *Decoder) readValue(r *wordReader) (Value, error) {
	var stack []*arrayFrame

	for {
		start := r.pos
		tag, err := r.next("value tag")
		if err != nil {
			return nil, err
		}
		if tag < int64(KindLong) || tag > int64(KindNull) {
			return nil, tagErrorf(ErrUnknownTag, start, tag, "value tag %d", tag)
		}

		var v Value
		switch Kind(tag) {
		case KindLong:
			w, err := r.next("long payload")
			if err != nil {
				return nil, err
			}
			v = Long(w)

		case KindString:
			s, err := r.readString()
			if err != nil {
				return nil, err
			}
			v = s

		case KindBool:
			w, err := r.next("bool payload")
			if err != nil {
				return nil, err
			}
			switch w {
			case 0:
				v = Bool(true)
			case 1:
				v = Bool(false)
			default:
				return nil, decodeErrorf(ErrInvalidBool, r.pos-1, "got %d, want 0 (true) or 1 (false)", w)
			}

		case KindArray:
			n, err := r.length("array")
			if err != nil {
				return nil, err
			}
			// Every element is at least two words.
			if n > int64(r.remaining()/2) {
				return nil, decodeErrorf(ErrTruncatedInput, start, "array declares %d elements, %d words remain", n, r.remaining())
			}
			if len(stack) >= d.maxDepth {
				return nil, decodeErrorf(ErrTooDeep, start, "nesting exceeds %d levels", d.maxDepth)
			}
			if n > 0 {
				stack = append(stack, &arrayFrame{elems: make(Array, 0, n), want: int(n)})
				continue
			}
			v = Array{}

		case KindFunction, KindNull:
			return nil, tagErrorf(ErrUnsupportedValueTag, start, tag, "%s", Kind(tag))
		}

		// Fold the finished value into its parents, closing every array
		// that is now complete.
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			top.elems = append(top.elems, v)
			if len(top.elems) < top.want {
				break
			}
			stack = stack[:len(stack)-1]
			v = top.elems
		}
		if len(stack) == 0 {
			return v, nil
		}
	}
}

func (r *wordReader) readString() (String, error) {
	start := r.pos - 1
	n, err := r.length("string")
	if err != nil {
		return "", err
	}
	if n > int64(r.remaining()) {
		return "", decodeErrorf(ErrTruncatedInput, start, "string declares %d code points, %d words remain", n, r.remaining())
	}

	var sb strings.Builder
	sb.Grow(int(n))
	for i := int64(0); i < n; i++ {
		w := r.words[r.pos]
		if w < 0 || w > utf8.MaxRune || !utf8.ValidRune(rune(w)) {
			return "", decodeErrorf(ErrInvalidScalar, r.pos, "word %d is not a unicode scalar value", w)
		}
		sb.WriteRune(rune(w))
		r.pos++
	}
	return String(sb.String()), nil
}
