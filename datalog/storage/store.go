package storage

import (
	"fmt"
	"strings"

	"github.com/wbrown/spanlog/datalog"
)

// Store holds named, set-valued relation tables of fixed arity.
// The executor is its only caller; rows never escape as references.
type Store interface {
	// CreateTable creates an empty table. Creating an existing table with
	// the same arity is a no-op; a different arity is an error.
	CreateTable(name string, arity int) error
	HasTable(name string) (bool, error)
	Arity(name string) (int, error)
	DropTable(name string) error
	ClearTable(name string) error

	// Insert adds tuples with set semantics and returns how many were new
	Insert(name string, tuples []datalog.Tuple) (int, error)
	// Delete removes tuples and returns how many were present
	Delete(name string, tuples []datalog.Tuple) (int, error)
	Scan(name string) ([]datalog.Tuple, error)
	Len(name string) (int, error)
	Tables() ([]string, error)

	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
)

// Open creates a store for backend. An empty path opens badger in memory
// and sqlite as a private in-memory database.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendBadger:
		return NewBadgerStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func noTable(name string) error {
	return datalog.Errorf(datalog.UndeclaredError, name, "table does not exist")
}

func arityMismatch(name string, have, want int) error {
	return datalog.Errorf(datalog.StructuralError, name, "table has arity %d, got %d", have, want)
}

func checkArity(name string, arity int, tuples []datalog.Tuple) error {
	for _, t := range tuples {
		if len(t) != arity {
			return arityMismatch(name, arity, len(t))
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return datalog.Errorf(datalog.SchemaError, name, "invalid table name %q", name)
	}
	return nil
}
