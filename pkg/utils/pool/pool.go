// Package pool runs per-item actions on a bounded set of workers.
// A failing item is recorded and never aborts the remaining items; the
// caller blocks until every item has been attempted.
package pool

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// DefaultWidth is the default number of concurrent workers
const DefaultWidth = 200

// Failure pairs an item with the error its action produced
type Failure[T any] struct {
	Item T
	Err  error
}

// Results aggregates the outcome of a Run or Collect call
type Results[T any] struct {
	Succeeded int
	Failures  []Failure[T]
}

// Attempted returns the total number of items processed
func (r *Results[T]) Attempted() int {
	return r.Succeeded + len(r.Failures)
}

// Run applies fn to every item using at most width concurrent workers.
// Ordering across items is not guaranteed; fn must be safe to invoke
// concurrently for distinct items. Run returns only after all items
// have been attempted.
func Run[T any](ctx context.Context, items []T, width int, fn func(ctx context.Context, item T) error) *Results[T] {
	if width < 1 {
		width = DefaultWidth
	}

	var (
		mu      sync.Mutex
		results Results[T]
	)

	var eg errgroup.Group
	eg.SetLimit(width)

	for _, item := range items {
		eg.Go(func() error {
			err := apply(ctx, item, fn)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results.Failures = append(results.Failures, Failure[T]{Item: item, Err: err})
			} else {
				results.Succeeded++
			}
			return nil
		})
	}

	// Workers never return errors; Wait is purely the drain barrier.
	_ = eg.Wait()

	return &results
}

// Collect applies fn to every item like Run, and additionally gathers
// the values fn elects to keep. The returned slice has no defined
// order.
func Collect[T, R any](ctx context.Context, items []T, width int, fn func(ctx context.Context, item T) (R, bool, error)) ([]R, *Results[T]) {
	var (
		mu        sync.Mutex
		collected []R
	)

	results := Run(ctx, items, width, func(ctx context.Context, item T) error {
		value, keep, err := fn(ctx, item)
		if err != nil {
			return err
		}
		if keep {
			mu.Lock()
			collected = append(collected, value)
			mu.Unlock()
		}
		return nil
	})

	return collected, results
}

// apply invokes fn and converts a panic into an error so one bad item
// cannot take down the pool.
func apply[T any](ctx context.Context, item T, fn func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in pool worker", "panic", r)
			err = goerr.New("panic in pool worker", goerr.V("panic", r))
		}
	}()

	return fn(ctx, item)
}
