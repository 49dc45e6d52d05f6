package intcode

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyImage is returned when a program has no memory cells at all.
	ErrEmptyImage = errors.New("intcode: empty memory image")

	// ErrUnexpectedEndOfProgram is returned by strict machines when the
	// instruction pointer runs off the end of memory without a halt.
	ErrUnexpectedEndOfProgram = errors.New("intcode: unexpected end of program")
)

// UnknownPosition marks a fault raised outside a running machine, where no
// instruction address is available.
const UnknownPosition = -1

// InvalidOpcodeError reports an opcode outside {1, 2, 99}.
type InvalidOpcodeError struct {
	Value    uint64 // The offending opcode value
	Position int    // Address the opcode was read from, or UnknownPosition
}

func (e *InvalidOpcodeError) Error() string {
	if e.Position == UnknownPosition {
		return fmt.Sprintf("intcode: invalid opcode %d", e.Value)
	}
	return fmt.Sprintf("intcode: invalid opcode %d at position %d", e.Value, e.Position)
}

// AddressOutOfBoundsError reports an address outside the memory image.
type AddressOutOfBoundsError struct {
	Address uint64 // Requested address
	Size    int    // Length of the memory image
}

func (e *AddressOutOfBoundsError) Error() string {
	return fmt.Sprintf("intcode: address %d out of bounds (memory size %d)", e.Address, e.Size)
}

// ParseError reports a token that is not a non-negative integer.
type ParseError struct {
	Index int    // Zero-based token position
	Token string // Token text after trimming
	Err   error  // Underlying strconv error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("intcode: token %d %q: %v", e.Index, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsFault reports whether err is a run-level machine fault (as opposed to
// a caller-level problem such as an empty image or a cancelled context).
func IsFault(err error) bool {
	var invalid *InvalidOpcodeError
	var oob *AddressOutOfBoundsError
	return errors.As(err, &invalid) || errors.As(err, &oob) || errors.Is(err, ErrUnexpectedEndOfProgram)
}
