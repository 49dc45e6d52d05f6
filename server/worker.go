package server

import (
	"context"
	"fmt"
	"sync"
)

// workRequest represents a unit of work to be executed on a worker goroutine.
type workRequest struct {
	fn   func() (interface{}, error)
	done chan workResult
}

// workResult holds the return value from a work function.
type workResult struct {
	value interface{}
	err   error
}

// SearchWorker bounds how many machine runs and calibration searches
// execute at once. Requests beyond the limit queue until a goroutine is
// free or the caller's context ends.
type SearchWorker struct {
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSearchWorker creates a SearchWorker with n processing goroutines.
func NewSearchWorker(n int) *SearchWorker {
	if n < 1 {
		n = 1
	}
	w := &SearchWorker{
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	w.wg.Add(n)
	for i := 0; i < n; i++ {
		go w.loop()
	}
	return w
}

// loop processes requests until Stop is called.
func (w *SearchWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *SearchWorker) execute(fn func() (interface{}, error)) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value, result.err = fn()
	}()
	return result
}

// Do submits fn and blocks until it completes or ctx ends. fn should honor
// ctx itself; Do only stops waiting for it.
func (w *SearchWorker) Do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errWorkerStopped
	}

	select {
	case result := <-req.done:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutines and waits for them to exit.
func (w *SearchWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	w.wg.Wait()
}
