package intcode

import (
	"context"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.machine")

// cancelCheckInterval is how many steps run between context checks.
const cancelCheckInterval = 1024

// State is the machine's lifecycle state.
type State uint8

const (
	Running State = iota // ip is valid and no halt has been seen
	Halted               // Terminal: halt executed or ip ran off the end
	Faulted              // Terminal: a fault stopped execution
)

// String returns a human-readable name for State.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// TraceFunc observes each instruction just before it executes.
type TraceFunc func(ip int, in Instruction)

// Option configures a Machine.
type Option func(*Machine)

// WithStrictEnd makes running off the end of memory a fault
// (ErrUnexpectedEndOfProgram) instead of a silent halt.
func WithStrictEnd() Option {
	return func(m *Machine) { m.strictEnd = true }
}

// WithTrace installs a per-instruction observer.
func WithTrace(fn TraceFunc) Option {
	return func(m *Machine) { m.trace = fn }
}

// Machine executes a memory image in place.
type Machine struct {
	mem   Memory
	ip    int
	state State
	err   error
	steps int

	strictEnd bool
	trace     TraceFunc
}

// NewMachine creates a Machine over mem. The machine mutates mem directly;
// callers that need the original image must pass a clone.
func NewMachine(mem Memory, opts ...Option) *Machine {
	m := &Machine{mem: mem}
	for _, opt := range opts {
		opt(m)
	}
	if len(mem) == 0 {
		m.state = Faulted
		m.err = ErrEmptyImage
	}
	return m
}

// Run executes a memory image to completion with default options.
func Run(mem Memory) error {
	return NewMachine(mem).Run(context.Background())
}

// Memory returns the image the machine operates on.
func (m *Machine) Memory() Memory { return m.mem }

// IP returns the current instruction pointer.
func (m *Machine) IP() int { return m.ip }

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Steps returns the number of instructions executed, halt included.
func (m *Machine) Steps() int { return m.steps }

// Err returns the fault that stopped the machine, if any.
func (m *Machine) Err() error { return m.err }

// Step decodes and executes exactly one instruction.
// Once the machine has halted or faulted, Step is a no-op that returns the
// terminal state and the original fault.
func (m *Machine) Step() (State, error) {
	if m.state != Running {
		return m.state, m.err
	}

	if m.ip >= len(m.mem) {
		if m.strictEnd {
			return m.fault(ErrUnexpectedEndOfProgram)
		}
		m.state = Halted
		return m.state, nil
	}

	in, err := Decode(m.mem, m.ip)
	if err != nil {
		return m.fault(err)
	}
	if m.trace != nil {
		m.trace(m.ip, in)
	}
	m.steps++

	if in.Op == OpHalt {
		m.state = Halted
		return m.state, nil
	}

	if err := in.Execute(m.mem); err != nil {
		return m.fault(err)
	}
	m.ip += Stride
	return m.state, nil
}

// Run steps until the machine halts or faults. The context is polled
// periodically; cancellation leaves the machine Running at its current ip.
func (m *Machine) Run(ctx context.Context) error {
	for m.state == Running {
		if m.steps%cancelCheckInterval == cancelCheckInterval-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := m.Step(); err != nil {
			log.Debug("machine faulted", "ip", m.ip, "steps", m.steps, "error", err)
			return err
		}
	}
	log.Debug("machine halted", "ip", m.ip, "steps", m.steps)
	return m.err
}

func (m *Machine) fault(err error) (State, error) {
	m.state = Faulted
	m.err = err
	return m.state, err
}
