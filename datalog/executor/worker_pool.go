package executor

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool provides generic parallel execution with a bounded number of
// goroutines. The fixed-point driver uses it to evaluate the clauses of a
// head concurrently.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool
// workerCount: number of worker goroutines (0 = use NumCPU)
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ExecuteParallel executes operation on all inputs using the worker pool.
// Results are returned in the same order as inputs (order-preserving).
// The first failure cancels the jobs not yet started and is returned.
func (p *WorkerPool) ExecuteParallel(
	ctx Context,
	inputs []interface{},
	operation func(Context, interface{}) (interface{}, error),
) ([]interface{}, error) {
	if len(inputs) == 0 {
		return []interface{}{}, nil
	}

	results := make([]interface{}, len(inputs))
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(p.workerCount)

	for i := range inputs {
		idx := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result, err := operation(ctx, inputs[idx])
			if err != nil {
				return fmt.Errorf("parallel execution failed at index %d: %w", idx, err)
			}
			results[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetWorkerCount returns the number of worker goroutines
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}
