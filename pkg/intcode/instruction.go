package intcode

import "fmt"

// Instruction is one decoded instruction. Op selects the variant; the
// operand addresses are meaningful for OpAdd and OpMul only.
type Instruction struct {
	Op   Opcode
	Src1 uint64 // Address of the first operand
	Src2 uint64 // Address of the second operand
	Dst  uint64 // Address the result is written to
}

// Decode reads the instruction at ip without changing memory.
func Decode(mem Memory, ip int) (Instruction, error) {
	if ip < 0 || ip >= len(mem) {
		return Instruction{}, &AddressOutOfBoundsError{Address: uint64(ip), Size: len(mem)}
	}

	op := Opcode(mem[ip])
	switch op {
	case OpHalt:
		return Instruction{Op: OpHalt}, nil

	case OpAdd, OpMul:
		if last := ip + op.OperandCount(); last >= len(mem) {
			return Instruction{}, &AddressOutOfBoundsError{Address: uint64(last), Size: len(mem)}
		}
		return Instruction{
			Op:   op,
			Src1: mem[ip+1],
			Src2: mem[ip+2],
			Dst:  mem[ip+3],
		}, nil

	default:
		return Instruction{}, &InvalidOpcodeError{Value: uint64(op), Position: ip}
	}
}

// Execute applies an Add or Mul instruction to mem. Arithmetic is native
// uint64 and wraps silently on overflow. Halt is a no-op here; the machine
// handles it before execution.
func (in Instruction) Execute(mem Memory) error {
	if in.Op == OpHalt {
		return nil
	}

	a, err := mem.Load(in.Src1)
	if err != nil {
		return err
	}
	b, err := mem.Load(in.Src2)
	if err != nil {
		return err
	}

	var v uint64
	switch in.Op {
	case OpAdd:
		v = a + b
	case OpMul:
		v = a * b
	default:
		return &InvalidOpcodeError{Value: uint64(in.Op), Position: UnknownPosition}
	}
	return mem.Store(in.Dst, v)
}

// String renders the instruction in listing form, e.g. "ADD 9, 10 -> 3".
func (in Instruction) String() string {
	if in.Op.OperandCount() == 0 {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d, %d -> %d", in.Op, in.Src1, in.Src2, in.Dst)
}
