package calibrate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/derwiath/adventofcode-2019/pkg/intcode"
)

// maxChunk bounds how many consecutive ranks a worker claims at once.
const maxChunk = 1024

// findParallel hands out rank chunks in enumeration order. Workers record
// matches by lowest rank and skip chunks that start past the best match
// found so far, so the winner is the one a sequential search would report.
func findParallel(ctx context.Context, initial intcode.Memory, target uint64, s space, workers int, machineOpts []intcode.Option) (Result, error) {
	chunk := s.verbs
	if chunk > maxChunk {
		chunk = maxChunk
	}

	var (
		next   atomic.Uint64
		best   atomic.Uint64
		trials atomic.Int64
		faults atomic.Int64

		mu         sync.Mutex
		firstFault error
		faultRank  uint64
	)
	best.Store(s.total)

	claim := func(rank uint64) {
		for {
			cur := best.Load()
			if rank >= cur || best.CompareAndSwap(cur, rank) {
				return
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				start := next.Add(chunk) - chunk
				if start >= s.total || start >= best.Load() {
					return nil
				}
				end := min(start+chunk, s.total)

				for rank := start; rank < end; rank++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					if rank >= best.Load() {
						break
					}

					p := s.pairAt(rank)
					out, err := runTrial(gctx, initial, p, machineOpts)
					trials.Add(1)
					if err != nil {
						if !intcode.IsFault(err) {
							return err
						}
						faults.Add(1)
						log.Debug("trial faulted", "noun", p.Noun, "verb", p.Verb, "error", err)
						mu.Lock()
						if firstFault == nil || rank < faultRank {
							firstFault, faultRank = err, rank
						}
						mu.Unlock()
						continue
					}
					if out == target {
						claim(rank)
						break
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if rank := best.Load(); rank < s.total {
		p := s.pairAt(rank)
		log.Debug("calibration found", "noun", p.Noun, "verb", p.Verb, "trials", trials.Load())
		return Result{Pair: p, Found: true, Trials: int(trials.Load()), Faults: int(faults.Load())}, nil
	}
	return Result{}, &NotFoundError{
		Target:     target,
		Trials:     int(trials.Load()),
		Faults:     int(faults.Load()),
		FirstFault: firstFault,
	}
}
