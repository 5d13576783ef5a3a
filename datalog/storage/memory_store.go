package storage

import (
	"sort"
	"sync"

	"github.com/wbrown/spanlog/datalog"
)

type memTable struct {
	arity int
	rows  []datalog.Tuple
	index map[string]int // encoded tuple -> position in rows
}

// MemoryStore keeps every table in process memory, rows in insertion order
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (s *MemoryStore) CreateTable(name string, arity int) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[name]; ok {
		if t.arity != arity {
			return arityMismatch(name, t.arity, arity)
		}
		return nil
	}
	s.tables[name] = &memTable{arity: arity, index: make(map[string]int)}
	return nil
}

func (s *MemoryStore) HasTable(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok, nil
}

func (s *MemoryStore) Arity(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return 0, noTable(name)
	}
	return t.arity, nil
}

func (s *MemoryStore) DropTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return noTable(name)
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) ClearTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return noTable(name)
	}
	t.rows = nil
	t.index = make(map[string]int)
	return nil
}

func (s *MemoryStore) Insert(name string, tuples []datalog.Tuple) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return 0, noTable(name)
	}
	if err := checkArity(name, t.arity, tuples); err != nil {
		return 0, err
	}
	added := 0
	for _, tuple := range tuples {
		key, err := datalog.EncodeTuple(tuple)
		if err != nil {
			return added, err
		}
		if _, exists := t.index[string(key)]; exists {
			continue
		}
		t.index[string(key)] = len(t.rows)
		t.rows = append(t.rows, cloneTuple(tuple))
		added++
	}
	return added, nil
}

func (s *MemoryStore) Delete(name string, tuples []datalog.Tuple) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return 0, noTable(name)
	}
	doomed := make(map[int]bool)
	for _, tuple := range tuples {
		key, err := datalog.EncodeTuple(tuple)
		if err != nil {
			return 0, err
		}
		if pos, exists := t.index[string(key)]; exists {
			doomed[pos] = true
			delete(t.index, string(key))
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	rows := t.rows[:0]
	for i, row := range t.rows {
		if !doomed[i] {
			rows = append(rows, row)
		}
	}
	t.rows = rows
	for i, row := range t.rows {
		key, _ := datalog.EncodeTuple(row)
		t.index[string(key)] = i
	}
	return len(doomed), nil
}

func (s *MemoryStore) Scan(name string) ([]datalog.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, noTable(name)
	}
	out := make([]datalog.Tuple, len(t.rows))
	for i, row := range t.rows {
		out[i] = cloneTuple(row)
	}
	return out, nil
}

func (s *MemoryStore) Len(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return 0, noTable(name)
	}
	return len(t.rows), nil
}

func (s *MemoryStore) Tables() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneTuple(t datalog.Tuple) datalog.Tuple {
	c := make(datalog.Tuple, len(t))
	copy(c, t)
	return c
}
