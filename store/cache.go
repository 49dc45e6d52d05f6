package store

import (
	"context"
	"errors"

	"github.com/derwiath/adventofcode-2019/calibrate"
	"github.com/derwiath/adventofcode-2019/pkg/intcode"
	"github.com/derwiath/adventofcode-2019/wire"
)

// Search describes one calibration request.
type Search struct {
	Target    uint64
	Noun      calibrate.Domain
	Verb      calibrate.Domain
	Workers   int
	StrictEnd bool
}

// DefaultSearch returns a search for target over the default domains.
func DefaultSearch(target uint64) Search {
	return Search{
		Target:  target,
		Noun:    calibrate.DefaultDomain,
		Verb:    calibrate.DefaultDomain,
		Workers: 1,
	}
}

// Options returns the calibrate options for q.
func (q Search) Options() []calibrate.Option {
	opts := []calibrate.Option{
		calibrate.WithNounDomain(q.Noun),
		calibrate.WithVerbDomain(q.Verb),
		calibrate.WithWorkers(q.Workers),
	}
	if q.StrictEnd {
		opts = append(opts, calibrate.WithStrictEnd())
	}
	return opts
}

// Calibrate answers q from the cache when possible and otherwise runs the
// search and records its outcome, found or not. The bool result reports a
// cache hit. A nil Store always searches. Strict searches are neither
// served from nor written to the cache, since records do not carry the
// end-of-memory mode.
func (s *Store) Calibrate(ctx context.Context, initial intcode.Memory, q Search) (calibrate.Result, bool, error) {
	if s == nil || q.StrictEnd {
		res, err := calibrate.FindCalibration(ctx, initial, q.Target, q.Options()...)
		return res, false, err
	}

	hash, err := wire.ImageHash(initial)
	if err != nil {
		return calibrate.Result{}, false, err
	}

	rec, err := s.Lookup(ctx, hash, q.Target, q.Noun, q.Verb)
	switch {
	case err == nil:
		log.Debug("cache hit", "image", hash.String(), "target", q.Target)
		res, err := rec.Outcome()
		return res, true, err
	case !errors.Is(err, ErrNotFound):
		log.Warning("cache lookup failed", "error", err)
	}

	res, searchErr := calibrate.FindCalibration(ctx, initial, q.Target, q.Options()...)

	rec = wire.NewRecord(hash, q.Target, q.Noun, q.Verb)
	var nf *calibrate.NotFoundError
	switch {
	case searchErr == nil:
		rec.SetResult(res)
	case errors.As(searchErr, &nf):
		rec.SetNotFound(nf)
	default:
		return res, false, searchErr
	}

	if _, err := s.Put(ctx, rec); err != nil {
		log.Warning("cache write failed", "error", err)
	}
	return res, false, searchErr
}
