package intcode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a memory image.
// Instructions are decoded at stride boundaries up to and including the
// first HALT; everything after that, and anything that does not decode,
// is listed as DATA.
func Disassemble(mem Memory) string {
	return DisassembleWithName(mem, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(mem Memory, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Intcode image, %d words\n", len(mem)))
	sb.WriteString("\n; Code:\n")

	addr := 0
	var stopErr error
	for addr < len(mem) {
		in, err := Decode(mem, addr)
		if err != nil {
			stopErr = err
			break
		}
		sb.WriteString(fmt.Sprintf("%04d  %s\n", addr, in))
		if in.Op == OpHalt {
			addr++
			break
		}
		addr += Stride
	}

	if stopErr != nil {
		sb.WriteString(fmt.Sprintf("; stopped: %v\n", stopErr))
	}

	if addr < len(mem) {
		sb.WriteString("\n; Data:\n")
		for ; addr < len(mem); addr++ {
			sb.WriteString(fmt.Sprintf("%04d  DATA %d\n", addr, mem[addr]))
		}
	}

	return sb.String()
}
