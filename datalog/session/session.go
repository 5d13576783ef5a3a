// Package session is the front door of the engine. A Session owns a store,
// the term graph, the IE function registry and a symbol table, validates
// every declaration, fact, rule and query against them, and drives the
// executor.
//
// File organization:
//   - session.go: Session, options and lifecycle
//   - symbols.go: relation schemas and rule flags
//   - relations.go: declarations, facts and relation removal
//   - rules.go: rule validation, schema inference and the term graph
//   - query.go: queries, exports and IE evaluation
//   - functions.go: IE function registration
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog/annotations"
	"github.com/wbrown/spanlog/datalog/config"
	"github.com/wbrown/spanlog/datalog/executor"
	"github.com/wbrown/spanlog/datalog/ie"
	"github.com/wbrown/spanlog/datalog/planner"
	"github.com/wbrown/spanlog/datalog/storage"
)

// Options configures a Session
type Options struct {
	Logger *zap.Logger
	// Store defaults to a fresh MemoryStore. The session closes it.
	Store    storage.Store
	Executor executor.Options
	// Handler receives evaluation events; nil disables annotations
	Handler annotations.Handler

	RemoveUselessRelations bool
	PruneProjectNodes      bool
}

// DefaultOptions returns an in-memory session with both plan optimizations enabled
func DefaultOptions() Options {
	return Options{
		Logger:                 zap.NewNop(),
		Executor:               executor.DefaultOptions(),
		RemoveUselessRelations: true,
		PruneProjectNodes:      true,
	}
}

// Session is safe for concurrent use; operations are serialized.
type Session struct {
	id        string
	options   Options
	logger    *zap.Logger
	store     storage.Store
	exec      *executor.Executor
	graph     *planner.TermGraph
	functions *ie.Registry
	symbols   *symbolTable
	collector *annotations.Collector

	mu sync.Mutex
}

// New creates a session with the built-in IE functions registered
func New(options Options) *Session {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Store == nil {
		options.Store = storage.NewMemoryStore()
	}
	if options.Executor.Logger == nil {
		options.Executor.Logger = options.Logger
	}

	id := uuid.NewString()
	logger := options.Logger.With(zap.String("session", id))
	options.Executor.Logger = options.Executor.Logger.With(zap.String("session", id))

	functions := ie.NewDefaultRegistry()
	s := &Session{
		id:        id,
		options:   options,
		logger:    logger,
		store:     options.Store,
		exec:      executor.New(options.Store, functions, options.Executor),
		graph:     planner.NewTermGraph(),
		functions: functions,
		symbols:   newSymbolTable(),
	}
	if options.Handler != nil {
		s.collector = annotations.NewCollector(options.Handler).WithSession(id)
	}
	logger.Debug("session created", zap.Strings("functions", functions.Names()))
	return s
}

// NewFromConfig opens the configured store and creates a session over it
func NewFromConfig(cfg *config.Config, logger *zap.Logger, handler annotations.Handler) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	return New(Options{
		Logger:                 logger,
		Store:                  store,
		Executor:               cfg.ExecutorOptions(logger),
		Handler:                handler,
		RemoveUselessRelations: cfg.Engine.RemoveUselessRelations,
		PruneProjectNodes:      cfg.Engine.PruneProjectNodes,
	}), nil
}

// ID returns the session identifier stamped on its annotation events
func (s *Session) ID() string {
	return s.id
}

// Collector returns the annotation collector, nil when annotations are off
func (s *Session) Collector() *annotations.Collector {
	return s.collector
}

// Close releases the store
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.exec.DropTemporaryTables(); err != nil {
		s.logger.Warn("failed to drop scratch tables", zap.Error(err))
	}
	return s.store.Close()
}

func (s *Session) context() executor.Context {
	return s.exec.NewContext(s.collector)
}

// Graph renders the term graph
func (s *Session) Graph() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.String()
}
