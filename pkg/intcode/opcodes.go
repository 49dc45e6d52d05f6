package intcode

import "fmt"

// Opcode is the integer tag stored at memory[ip].
type Opcode uint64

const (
	OpAdd  Opcode = 1  // mem[c] = mem[a] + mem[b]
	OpMul  Opcode = 2  // mem[c] = mem[a] * mem[b]
	OpHalt Opcode = 99 // Stop execution
)

// Stride is the distance the instruction pointer advances after every
// non-halting instruction.
const Stride = 4

// OpcodeInfo provides metadata about each opcode for decoding and listings.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Operands int    // Number of operand words following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAdd:  {"ADD", 3},
	OpMul:  {"MUL", 3},
	OpHalt: {"HALT", 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN(n)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint64(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is one of the defined opcodes.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandCount returns the number of operand words for this opcode.
func (op Opcode) OperandCount() int {
	return GetOpcodeInfo(op).Operands
}

// InstructionLen returns the number of memory words the instruction
// occupies (1 + operands).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandCount()
}

// IsHalt returns true if this opcode terminates execution.
func (op Opcode) IsHalt() bool {
	return op == OpHalt
}

// AllOpcodes returns a slice of all defined opcodes in ascending order.
func AllOpcodes() []Opcode {
	return []Opcode{OpAdd, OpMul, OpHalt}
}
