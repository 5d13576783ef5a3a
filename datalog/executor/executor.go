// Package executor evaluates rules over stored relations.
//
// File organization:
//   - executor.go: Executor struct, generated table names, scratch tracking
//   - relation.go: relation descriptors and selection conditions
//   - operators.go: select, project, union and copy
//   - join.go: natural hash join
//   - facts.go: fact mutation and table lifecycle
//   - ie.go: IE relation evaluation
//   - fixpoint.go: the fixed-point driver walking the term graph
//   - query.go: query evaluation and results
//   - context.go: annotation hooks
//
// Start with Evaluate in fixpoint.go to understand the evaluation flow.
package executor

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/annotations"
	"github.com/wbrown/spanlog/datalog/ie"
	"github.com/wbrown/spanlog/datalog/storage"
)

// FunctionLookup resolves IE function names
type FunctionLookup interface {
	Lookup(name string) (ie.Function, bool)
}

// Executor is the relational engine. It is the only mutator of the store;
// callers hold relation descriptors, never rows.
type Executor struct {
	store     storage.Store
	functions FunctionLookup
	options   Options
	logger    *zap.Logger
	pool      *WorkerPool

	counter atomic.Uint64
	mu      sync.Mutex
	scratch map[string]bool // generated tables not yet dropped
}

// New creates an executor over store. functions may be nil when no IE
// relations will be evaluated.
func New(store storage.Store, functions FunctionLookup, options Options) *Executor {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return &Executor{
		store:     store,
		functions: functions,
		options:   options,
		logger:    options.Logger,
		pool:      NewWorkerPool(options.Workers),
		scratch:   make(map[string]bool),
	}
}

// Options returns the executor options
func (e *Executor) Options() Options {
	return e.options
}

// Store returns the backing store
func (e *Executor) Store() storage.Store {
	return e.store
}

// NewContext creates an annotated context reporting into collector, or a
// no-op context when collector is nil or disabled
func (e *Executor) NewContext(collector *annotations.Collector) Context {
	if collector == nil || !collector.Enabled() {
		return &BaseContext{}
	}
	return &AnnotatedContext{collector: collector, size: e.size}
}

// size reports a table's cardinality for annotations, -1 if unknown
func (e *Executor) size(name string) int {
	n, err := e.store.Len(name)
	if err != nil {
		return -1
	}
	return n
}

// newTable creates an empty scratch table with a name no user relation can take
func (e *Executor) newTable(prefix string, arity int) (string, error) {
	name := fmt.Sprintf("%s%s_%d", datalog.ReservedPrefix, prefix, e.counter.Add(1))
	if err := e.store.CreateTable(name, arity); err != nil {
		return "", err
	}
	e.mu.Lock()
	e.scratch[name] = true
	e.mu.Unlock()
	return name, nil
}

// DropTemporaryTables drops every scratch table created by operators.
// Relations returned by operators are invalid afterwards.
func (e *Executor) DropTemporaryTables() error {
	e.mu.Lock()
	names := make([]string, 0, len(e.scratch))
	for name := range e.scratch {
		names = append(names, name)
	}
	e.scratch = make(map[string]bool)
	e.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		if err := e.store.DropTable(name); err != nil && !datalog.IsKind(err, datalog.UndeclaredError) {
			return fmt.Errorf("failed to drop scratch table %s: %w", name, err)
		}
	}
	return nil
}

// TemporaryTables returns the number of scratch tables alive
func (e *Executor) TemporaryTables() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.scratch)
}
