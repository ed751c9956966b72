// Package bytecode decodes compiled tinyvm programs.
//
// A compiled program is a flat stream of signed 64-bit words. Every
// instruction starts with an opcode tag word followed by zero, one or two
// self-describing operand values. Each value is itself a tag word plus a
// type-specific payload:
//
//	Long   [0, x]                     the integer x
//	String [1, n, c1 ... cn]          n Unicode scalar values
//	Bool   [2, b]                     b == 0 is true, b == 1 is false
//	Array  [3, n, v1 ... vn]          n nested values (n counts elements, not words)
//
// Function (4) and Null (5) exist as value kinds but have no payload
// encoding, so they are rejected when they appear on the wire.
//
// # Decoding layers
//
//   - DecodeValue reads one tagged value at a cursor and reports how many
//     words it consumed.
//
//   - DecodeOpcode reads one instruction, decodes its operands and checks
//     each operand against the kind the opcode requires.
//
//   - DecodeProgram decodes a whole stream. It either returns every
//     instruction or an error; a partially decoded program is never
//     returned.
//
// Nested arrays are decoded with an explicit work stack rather than native
// recursion, and the nesting depth is bounded (see WithMaxDepth), so hostile
// input cannot exhaust the goroutine stack.
//
// # Errors
//
// Every failure is a *DecodeError wrapping one of the Err* sentinels, so
// callers can classify failures with errors.Is and recover the word offset
// with errors.As.
//
// A Decoder holds no mutable state. It is safe to share one between
// goroutines.
package bytecode
