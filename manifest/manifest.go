// Package manifest handles intcode.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/derwiath/adventofcode-2019/calibrate"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "intcode.toml"

// DefaultStorePath is the calibration cache location, relative to Dir.
const DefaultStorePath = ".intcode/results.db"

// Manifest represents an intcode.toml project configuration.
type Manifest struct {
	Program     Program     `toml:"program"`
	Machine     Machine     `toml:"machine"`
	Calibration Calibration `toml:"calibration"`
	Store       Store       `toml:"store"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program locates the memory image.
type Program struct {
	Path string `toml:"path"`
}

// Machine configures execution.
type Machine struct {
	StrictEnd bool `toml:"strict-end"`
}

// Calibration configures the noun/verb search.
type Calibration struct {
	Target  *uint64           `toml:"target"`
	Noun    *calibrate.Domain `toml:"noun"`
	Verb    *calibrate.Domain `toml:"verb"`
	Workers int               `toml:"workers"`
}

// Store configures the calibration cache.
type Store struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// Default returns the configuration used when no intcode.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses an intcode.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Calibration.Noun == nil {
		d := calibrate.DefaultDomain
		m.Calibration.Noun = &d
	}
	if m.Calibration.Verb == nil {
		d := calibrate.DefaultDomain
		m.Calibration.Verb = &d
	}
	if m.Calibration.Workers == 0 {
		m.Calibration.Workers = 1
	}
	if m.Store.Path == "" {
		m.Store.Path = DefaultStorePath
	}
}

// Validate checks value ranges that TOML decoding cannot express.
func (m *Manifest) Validate() error {
	if err := m.Calibration.Noun.Validate(); err != nil {
		return fmt.Errorf("calibration.noun: %w", err)
	}
	if err := m.Calibration.Verb.Validate(); err != nil {
		return fmt.Errorf("calibration.verb: %w", err)
	}
	if m.Calibration.Workers < 1 {
		return errors.New("calibration.workers must be at least 1")
	}
	return nil
}

// ProgramPath returns the absolute path of the program image, or "" if the
// manifest names none.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Program.Path)
}

// StorePath returns the absolute path of the calibration cache.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// CalibrateOptions returns the search options the manifest describes.
func (m *Manifest) CalibrateOptions() []calibrate.Option {
	opts := []calibrate.Option{
		calibrate.WithNounDomain(*m.Calibration.Noun),
		calibrate.WithVerbDomain(*m.Calibration.Verb),
		calibrate.WithWorkers(m.Calibration.Workers),
	}
	if m.Machine.StrictEnd {
		opts = append(opts, calibrate.WithStrictEnd())
	}
	return opts
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
