package intcode

import (
	"strconv"
	"strings"
)

// Memory is a program image: the integer array that is both code and data.
// Its length is fixed for the duration of a run.
type Memory []uint64

// ParseMemory parses a comma-separated list of non-negative integers.
// Surrounding whitespace on the whole text and on each token is ignored.
func ParseMemory(text string) (Memory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyImage
	}

	tokens := strings.Split(text, ",")
	mem := make(Memory, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return nil, &ParseError{Index: i, Token: tok, Err: err}
		}
		mem[i] = v
	}
	return mem, nil
}

// Clone returns a flat copy that shares no backing storage with m.
func (m Memory) Clone() Memory {
	if m == nil {
		return nil
	}
	c := make(Memory, len(m))
	copy(c, m)
	return c
}

// Load returns the value at addr.
func (m Memory) Load(addr uint64) (uint64, error) {
	if addr >= uint64(len(m)) {
		return 0, &AddressOutOfBoundsError{Address: addr, Size: len(m)}
	}
	return m[addr], nil
}

// Store writes v at addr.
func (m Memory) Store(addr uint64, v uint64) error {
	if addr >= uint64(len(m)) {
		return &AddressOutOfBoundsError{Address: addr, Size: len(m)}
	}
	m[addr] = v
	return nil
}

// String returns the canonical comma-separated form.
func (m Memory) String() string {
	var sb strings.Builder
	for i, v := range m {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(v, 10))
	}
	return sb.String()
}
