package bytecode

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTag          = errors.New("unknown tag")
	ErrTypeMismatch        = errors.New("operand type mismatch")
	ErrTruncatedInput      = errors.New("truncated input")
	ErrInvalidScalar       = errors.New("invalid unicode scalar value")
	ErrInvalidBool         = errors.New("invalid bool encoding")
	ErrTooDeep             = errors.New("array nesting too deep")
	ErrUnsupportedValueTag = errors.New("value tag has no wire encoding")
	ErrInvalidLength       = errors.New("negative length")
)

// DecodeError reports where and why decoding failed.
type DecodeError struct {
	Err    error  // One of the Err* sentinels
	Offset int    // Word index at which the offending datum starts
	Tag    Word   // Offending tag word for tag and type errors, else 0
	Detail string // Expected vs actual, when known
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at word %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at word %d: %s", e.Err, e.Offset, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(err error, offset int, format string, args ...any) error {
	return &DecodeError{Err: err, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// tagErrorf is decodeErrorf for failures caused by a particular tag word.
func tagErrorf(err error, offset int, tag Word, format string, args ...any) error {
	return &DecodeError{Err: err, Offset: offset, Tag: tag, Detail: fmt.Sprintf(format, args...)}
}
