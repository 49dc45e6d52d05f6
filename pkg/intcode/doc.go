// Package intcode implements a minimal stored-program machine whose memory
// is a flat sequence of non-negative integers used as both code and data.
//
// # Instruction set
//
// Every instruction starts with an opcode word at the instruction pointer:
//
//   - 1 (ADD): mem[c] = mem[a] + mem[b], operands a, b, c follow the opcode
//   - 2 (MUL): mem[c] = mem[a] * mem[b]
//   - 99 (HALT): stop; no operands
//
// All operands are direct addresses. After ADD or MUL the instruction
// pointer advances by Stride (4) words. It never moves backwards, so a
// well-formed image always terminates.
//
// # Execution model
//
// Execution is split into two stages that can be tested on their own:
// Decode turns the words at ip into an Instruction, and
// Instruction.Execute applies it to memory. Machine drives the two in a
// loop and owns the instruction pointer and lifecycle state.
//
// The machine mutates the image it is given. Callers that run the same
// program more than once (see package calibrate) clone the template with
// Memory.Clone before every run.
//
// # Faults
//
// Decoding an opcode outside {1, 2, 99} yields *InvalidOpcodeError and
// touching an address outside the image yields *AddressOutOfBoundsError.
// Both stop the run and leave memory as far as it got. Running off the end
// of memory without a HALT is a silent stop unless the machine was built
// WithStrictEnd, in which case it is ErrUnexpectedEndOfProgram.
package intcode
