// Package workpool bounds parallel work with a semaphore pool and
// provides an order-preserving parallel map over a slice.
package workpool

import (
	"context"
	"runtime"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
)

// Pool limits how many workers run at once.
type Pool struct {
	sem chan struct{}
}

// New creates a pool of the given size. Sizes below one default to the
// number of schedulable CPUs.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire takes a worker slot, blocking until one frees or the context
// ends.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a worker slot.
func (p *Pool) Release() {
	<-p.sem
}

// Map runs fn over every item with at most `workers` running at once
// and returns the results in item order. The first error wins and a
// cancelled context stops new work; results are only returned when
// every item processed cleanly.
func Map[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	log logger.Logger,
	fn func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	pool := New(workers)
	results := make([]R, len(items))

	type outcome struct {
		index int
		value R
		err   error
	}
	outcomes := make(chan outcome, len(items))

	// Spawn a goroutine per item, gated by the pool. Acquire fails only
	// when the context ends, so spawning simply stops there; collection
	// below waits for exactly the goroutines that started.
	spawned := 0
	for i, item := range items {
		if err := pool.Acquire(ctx); err != nil {
			log.Warn("Stopped dispatching work at item %d/%d: %v", i, len(items), err)
			break
		}
		spawned++

		go func(idx int, itm T) {
			defer pool.Release()

			select {
			case <-ctx.Done():
				var zero R
				outcomes <- outcome{index: idx, value: zero, err: ctx.Err()}
				return
			default:
			}

			val, err := fn(ctx, idx, itm)
			outcomes <- outcome{index: idx, value: val, err: err}
		}(i, item)
	}

	var firstErr error
	for range spawned {
		res := <-outcomes
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		results[res.index] = res.value
	}

	if firstErr == nil && spawned < len(items) {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
