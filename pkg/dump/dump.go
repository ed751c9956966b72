// Package dump converts decoded programs to and from portable documents.
//
// CBOR output uses canonical encoding, so equal programs always produce
// equal bytes and the encoding can be hashed or cached. JSON output is meant
// for people and other tools.
package dump

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/fxamacker/cbor/v2"
)

// Version is the document layout version written by this package.
const Version = 1

// ErrMalformed is returned when a document does not describe a valid program.
var ErrMalformed = errors.New("dump: malformed document")

// Document is the serialized form of a program.
type Document struct {
	Version      int      `cbor:"version" json:"version"`
	Width        int      `cbor:"width" json:"width"`
	Instructions []Record `cbor:"instructions" json:"instructions"`
}

// Record is one instruction. Op is informational; Tag is authoritative.
type Record struct {
	Op   string `cbor:"op" json:"op"`
	Tag  uint8  `cbor:"tag" json:"tag"`
	Args []Arg  `cbor:"args,omitempty" json:"args,omitempty"`
}

// Arg is one operand value. Exactly one payload field is set, chosen by Kind;
// arrays carry their elements in Elems.
type Arg struct {
	Kind  string  `cbor:"kind" json:"kind"`
	Long  *int64  `cbor:"long,omitempty" json:"long,omitempty"`
	Str   *string `cbor:"str,omitempty" json:"str,omitempty"`
	Bool  *bool   `cbor:"bool,omitempty" json:"bool,omitempty"`
	Elems []Arg   `cbor:"elems,omitempty" json:"elems,omitempty"`
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// Every array level costs two CBOR levels (the Arg map and its Elems).
	dm, err := cbor.DecOptions{
		MaxNestedLevels:  65535,
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// NewDocument builds the document for p.
func NewDocument(p bytecode.Program) *Document {
	doc := &Document{
		Version:      Version,
		Width:        p.Width(),
		Instructions: make([]Record, len(p)),
	}
	for i, ins := range p {
		rec := Record{Op: ins.Op.String(), Tag: uint8(ins.Op)}
		if len(ins.Operands) > 0 {
			rec.Args = make([]Arg, len(ins.Operands))
			for n, v := range ins.Operands {
				rec.Args[n] = argOf(v)
			}
		}
		doc.Instructions[i] = rec
	}
	return doc
}

// Program converts the document back into a validated program.
func (d *Document) Program() (bytecode.Program, error) {
	if d.Version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrMalformed, d.Version, Version)
	}
	if len(d.Instructions) == 0 {
		if d.Width != 0 {
			return nil, fmt.Errorf("%w: width %d with no instructions", ErrMalformed, d.Width)
		}
		return nil, nil
	}
	p := make(bytecode.Program, len(d.Instructions))
	for i, rec := range d.Instructions {
		ins := bytecode.Instruction{Op: bytecode.Opcode(rec.Tag)}
		if len(rec.Args) > 0 {
			ins.Operands = make([]bytecode.Value, len(rec.Args))
			for n, a := range rec.Args {
				v, err := a.value()
				if err != nil {
					return nil, fmt.Errorf("%w: instruction %d operand %d: %v", ErrMalformed, i, n+1, err)
				}
				ins.Operands[n] = v
			}
		}
		if err := ins.Validate(); err != nil {
			return nil, fmt.Errorf("%w: instruction %d: %w", ErrMalformed, i, err)
		}
		p[i] = ins
	}
	if p.Width() != d.Width {
		return nil, fmt.Errorf("%w: width %d, instructions occupy %d words", ErrMalformed, d.Width, p.Width())
	}
	return p, nil
}

// MarshalCBOR serializes p to canonical CBOR bytes.
func MarshalCBOR(p bytecode.Program) ([]byte, error) {
	return cborEncMode.Marshal(NewDocument(p))
}

// UnmarshalCBOR deserializes a program from CBOR bytes.
func UnmarshalCBOR(data []byte) (bytecode.Program, error) {
	var doc Document
	if err := cborDecMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dump: unmarshal program: %w", err)
	}
	return doc.Program()
}

// MarshalJSON serializes p to indented JSON.
func MarshalJSON(p bytecode.Program) ([]byte, error) {
	return json.MarshalIndent(NewDocument(p), "", "  ")
}

// UnmarshalJSON deserializes a program from JSON.
func UnmarshalJSON(data []byte) (bytecode.Program, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dump: unmarshal program: %w", err)
	}
	return doc.Program()
}

func argOf(v bytecode.Value) Arg {
	a := Arg{Kind: v.Kind().String()}
	switch v := v.(type) {
	case bytecode.Long:
		n := int64(v)
		a.Long = &n
	case bytecode.String:
		s := string(v)
		a.Str = &s
	case bytecode.Bool:
		b := bool(v)
		a.Bool = &b
	case bytecode.Array:
		if len(v) > 0 {
			a.Elems = make([]Arg, len(v))
			for i, e := range v {
				a.Elems[i] = argOf(e)
			}
		}
	case bytecode.Function:
		if v.Name != "" {
			s := v.Name
			a.Str = &s
		}
	}
	return a
}

func (a Arg) value() (bytecode.Value, error) {
	kind, ok := bytecode.ParseKind(a.Kind)
	if !ok || kind == bytecode.KindAny {
		return nil, fmt.Errorf("unknown kind %q", a.Kind)
	}
	switch kind {
	case bytecode.KindLong:
		if a.Long == nil {
			return nil, errors.New("long without payload")
		}
		return bytecode.Long(*a.Long), nil
	case bytecode.KindString:
		if a.Str == nil {
			return nil, errors.New("string without payload")
		}
		return bytecode.String(*a.Str), nil
	case bytecode.KindBool:
		if a.Bool == nil {
			return nil, errors.New("bool without payload")
		}
		return bytecode.Bool(*a.Bool), nil
	case bytecode.KindArray:
		arr := make(bytecode.Array, len(a.Elems))
		for i, e := range a.Elems {
			v, err := e.value()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case bytecode.KindFunction:
		f := bytecode.Function{}
		if a.Str != nil {
			f.Name = *a.Str
		}
		return f, nil
	default:
		return bytecode.Null{}, nil
	}
}
