package executor

import (
	"runtime"

	"go.uber.org/zap"
)

// Options configures an Executor
type Options struct {
	Logger *zap.Logger

	// MaxIterations caps fixed-point rounds per component. 0 means unbounded.
	MaxIterations int

	// Parallel execution options
	ParallelClauses bool // evaluate the clauses of a head concurrently
	Workers         int  // 0 = use NumCPU
}

// DefaultOptions returns sequential, unbounded evaluation with logging disabled
func DefaultOptions() Options {
	return Options{
		Logger:  zap.NewNop(),
		Workers: runtime.NumCPU(),
	}
}
