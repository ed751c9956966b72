// Package wordstream converts between raw bytecode files and word streams.
//
// A bytecode file is a flat sequence of signed 64-bit integers, each stored
// as eight little-endian bytes with no header or padding.
package wordstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// WordSize is the number of bytes per word.
const WordSize = 8

// Decode splits data into words. The length of data must be a multiple of
// WordSize.
func Decode(data []byte) ([]bytecode.Word, error) {
	if rem := len(data) % WordSize; rem != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words (%d trailing)",
			bytecode.ErrTruncatedInput, len(data), rem)
	}
	words := make([]bytecode.Word, len(data)/WordSize)
	for i := range words {
		words[i] = int64(binary.LittleEndian.Uint64(data[i*WordSize:]))
	}
	return words, nil
}

// Encode is the inverse of Decode.
func Encode(words []bytecode.Word) []byte {
	buf := make([]byte, 0, len(words)*WordSize)
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(w))
	}
	return buf
}

// Read consumes r to EOF and decodes its contents.
func Read(r io.Reader) ([]bytecode.Word, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading bytecode: %w", err)
	}
	return Decode(data)
}

// ReadFile loads and decodes the file at path.
func ReadFile(path string) ([]bytecode.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	words, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// Write encodes words to w.
func Write(w io.Writer, words []bytecode.Word) error {
	_, err := w.Write(Encode(words))
	return err
}

// WriteFile encodes words into the file at path.
func WriteFile(path string, words []bytecode.Word) error {
	if err := os.WriteFile(path, Encode(words), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
