// Package calibrate searches a program's two input parameters (noun and
// verb) for a pair that drives the value at address 0 to a target.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/tliron/commonlog"

	"github.com/derwiath/adventofcode-2019/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.calibrate")

// Fixed addresses of the calibration parameters and the program output.
const (
	OutputAddress = 0
	NounAddress   = 1
	VerbAddress   = 2
)

var (
	// ErrCalibrationNotFound means the domain was exhausted without a match.
	// It is a normal outcome; see NotFoundError for the search statistics.
	ErrCalibrationNotFound = errors.New("calibrate: no solution in searched domain")

	// ErrImageTooShort is returned when the template cannot hold both
	// parameters.
	ErrImageTooShort = errors.New("calibrate: image too short for noun and verb")

	// ErrEmptyDomain is returned for a domain whose Min exceeds its Max.
	ErrEmptyDomain = errors.New("calibrate: empty domain")

	// ErrDomainTooLarge is returned when noun × verb trials overflow uint64.
	ErrDomainTooLarge = errors.New("calibrate: domain too large")
)

// Domain is a closed range of parameter values.
type Domain struct {
	Min uint64 `json:"min" toml:"min"`
	Max uint64 `json:"max" toml:"max"`
}

// DefaultDomain is the standard 0..=99 parameter range.
var DefaultDomain = Domain{Min: 0, Max: 99}

// Size returns the number of values in the domain. A full uint64 range
// wraps to 0 and is rejected by Validate.
func (d Domain) Size() uint64 {
	if d.Min > d.Max {
		return 0
	}
	return d.Max - d.Min + 1
}

// Contains reports whether v lies in the domain.
func (d Domain) Contains(v uint64) bool {
	return v >= d.Min && v <= d.Max
}

// Validate checks that the domain is non-empty and countable.
func (d Domain) Validate() error {
	if d.Min > d.Max {
		return fmt.Errorf("%w: %s", ErrEmptyDomain, d)
	}
	if d.Max-d.Min == ^uint64(0) {
		return fmt.Errorf("%w: %s", ErrDomainTooLarge, d)
	}
	return nil
}

func (d Domain) String() string {
	return fmt.Sprintf("%d..=%d", d.Min, d.Max)
}

// Pair is one (noun, verb) trial.
type Pair struct {
	Noun uint64 `json:"noun"`
	Verb uint64 `json:"verb"`
}

// Answer returns the pair in its reported form, 100*noun + verb.
func (p Pair) Answer() uint64 {
	return 100*p.Noun + p.Verb
}

func (p Pair) String() string {
	return fmt.Sprintf("noun=%d verb=%d", p.Noun, p.Verb)
}

// Result describes a successful search.
type Result struct {
	Pair
	Found  bool
	Trials int // Trials executed, the winning one included
	Faults int // Trials that stopped on a machine fault
}

// NotFoundError carries the statistics of an exhausted search.
// It unwraps to ErrCalibrationNotFound.
type NotFoundError struct {
	Target     uint64
	Trials     int
	Faults     int
	FirstFault error // First machine fault seen, if any
}

func (e *NotFoundError) Error() string {
	if e.Faults > 0 && e.FirstFault != nil {
		return fmt.Sprintf("%v: target %d, %d trials, %d faulted (first: %v)", ErrCalibrationNotFound, e.Target, e.Trials, e.Faults, e.FirstFault)
	}
	if e.Faults > 0 {
		return fmt.Sprintf("%v: target %d, %d trials, %d faulted", ErrCalibrationNotFound, e.Target, e.Trials, e.Faults)
	}
	return fmt.Sprintf("%v: target %d, %d trials", ErrCalibrationNotFound, e.Target, e.Trials)
}

func (e *NotFoundError) Unwrap() error {
	return ErrCalibrationNotFound
}

// AllFaulted reports whether every trial in the domain faulted.
func (e *NotFoundError) AllFaulted() bool {
	return e.Trials > 0 && e.Faults == e.Trials
}

// Option configures a search.
type Option func(*config)

type config struct {
	noun        Domain
	verb        Domain
	workers     int
	machineOpts []intcode.Option
}

// WithDomain sets the same domain for noun and verb.
func WithDomain(d Domain) Option {
	return func(c *config) {
		c.noun = d
		c.verb = d
	}
}

// WithNounDomain sets the noun domain.
func WithNounDomain(d Domain) Option {
	return func(c *config) { c.noun = d }
}

// WithVerbDomain sets the verb domain.
func WithVerbDomain(d Domain) Option {
	return func(c *config) { c.verb = d }
}

// WithWorkers spreads trials over n goroutines. Values below 2 search
// sequentially.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithStrictEnd makes every trial machine treat running off the end of
// memory as a fault.
func WithStrictEnd() Option {
	return func(c *config) { c.machineOpts = append(c.machineOpts, intcode.WithStrictEnd()) }
}

// RunWithParameters clones initial, injects noun and verb, runs the clone
// to completion and returns the value at address 0. The template is never
// modified.
func RunWithParameters(initial intcode.Memory, noun, verb uint64) (uint64, error) {
	if err := checkImage(initial); err != nil {
		return 0, err
	}
	return runTrial(context.Background(), initial, Pair{Noun: noun, Verb: verb}, nil)
}

// FindCalibration enumerates (noun, verb) noun-major, verb-minor and
// returns the first pair whose output equals target. A machine fault only
// disqualifies its own trial. Exhausting the domain yields a
// *NotFoundError. The reported pair is the same for any worker count.
func FindCalibration(ctx context.Context, initial intcode.Memory, target uint64, opts ...Option) (Result, error) {
	cfg := config{noun: DefaultDomain, verb: DefaultDomain, workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkImage(initial); err != nil {
		return Result{}, err
	}
	s, err := newSpace(cfg.noun, cfg.verb)
	if err != nil {
		return Result{}, err
	}

	log.Debug("calibration started", "target", target, "noun", cfg.noun.String(), "verb", cfg.verb.String(), "workers", cfg.workers)

	if cfg.workers < 2 {
		return findSequential(ctx, initial, target, s, cfg.machineOpts)
	}
	return findParallel(ctx, initial, target, s, cfg.workers, cfg.machineOpts)
}

func findSequential(ctx context.Context, initial intcode.Memory, target uint64, s space, machineOpts []intcode.Option) (Result, error) {
	nf := &NotFoundError{Target: target}
	for rank := uint64(0); rank < s.total; rank++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		p := s.pairAt(rank)
		out, err := runTrial(ctx, initial, p, machineOpts)
		nf.Trials++
		if err != nil {
			if !intcode.IsFault(err) {
				return Result{}, err
			}
			nf.recordFault(p, err)
			continue
		}
		if out == target {
			log.Debug("calibration found", "noun", p.Noun, "verb", p.Verb, "trials", nf.Trials)
			return Result{Pair: p, Found: true, Trials: nf.Trials, Faults: nf.Faults}, nil
		}
	}
	return Result{}, nf
}

func (e *NotFoundError) recordFault(p Pair, err error) {
	e.Faults++
	if e.FirstFault == nil {
		e.FirstFault = err
	}
	log.Debug("trial faulted", "noun", p.Noun, "verb", p.Verb, "error", err)
}

func runTrial(ctx context.Context, initial intcode.Memory, p Pair, machineOpts []intcode.Option) (uint64, error) {
	mem := initial.Clone()
	mem[NounAddress] = p.Noun
	mem[VerbAddress] = p.Verb

	if err := intcode.NewMachine(mem, machineOpts...).Run(ctx); err != nil {
		return 0, err
	}
	return mem[OutputAddress], nil
}

func checkImage(initial intcode.Memory) error {
	if len(initial) == 0 {
		return intcode.ErrEmptyImage
	}
	if len(initial) <= VerbAddress {
		return fmt.Errorf("%w: %d words", ErrImageTooShort, len(initial))
	}
	return nil
}

// space maps enumeration ranks to pairs: rank = (noun-Min)*verbs + (verb-Min).
type space struct {
	noun, verb Domain
	verbs      uint64
	total      uint64
}

func newSpace(noun, verb Domain) (space, error) {
	if err := noun.Validate(); err != nil {
		return space{}, fmt.Errorf("noun: %w", err)
	}
	if err := verb.Validate(); err != nil {
		return space{}, fmt.Errorf("verb: %w", err)
	}
	hi, total := bits.Mul64(noun.Size(), verb.Size())
	if hi != 0 {
		return space{}, ErrDomainTooLarge
	}
	return space{noun: noun, verb: verb, verbs: verb.Size(), total: total}, nil
}

func (s space) pairAt(rank uint64) Pair {
	return Pair{
		Noun: s.noun.Min + rank/s.verbs,
		Verb: s.verb.Min + rank%s.verbs,
	}
}
