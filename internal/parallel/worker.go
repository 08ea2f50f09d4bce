// Package parallel provides the worker pool the runner uses to execute
// independent ranking jobs concurrently.
//
// Jobs share no mutable state, so the pool is a plain fan-out/fan-in with
// order-preserving result collection: result i always belongs to item i.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool; numWorkers <= 0 uses the CPU count
func NewWorkerPool(numWorkers int) *WorkerPool {
	return NewWorkerPoolContext(context.Background(), numWorkers)
}

// NewWorkerPoolContext creates a worker pool that stops handing out work
// once ctx is done
func NewWorkerPoolContext(ctx context.Context, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order.
// Items not started before the pool is cancelled keep the zero result and
// are reported false in started.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) (results []R, started []bool) {
	if len(items) == 0 {
		return nil, nil
	}

	itemCh := make(chan indexedItem[T])
	resultCh := make(chan indexedResult[R], len(items))

	workers := min(wp.numWorkers, len(items))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				resultCh <- indexedResult[R]{
					index:  item.index,
					result: worker(item.index, item.value),
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results = make([]R, len(items))
	started = make([]bool, len(items))
	for result := range resultCh {
		results[result.index] = result.result
		started[result.index] = true
	}

	return results, started
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
}
