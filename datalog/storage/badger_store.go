package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/spanlog/datalog"
)

// Key layout:
//
//	m\x00<table>           -> uvarint arity
//	r\x00<table>\x00<row>  -> empty, row is the encoded tuple
//
// Set semantics fall out of key identity.
var (
	metaPrefix = []byte{'m', 0}
	rowPrefix  = []byte{'r', 0}
)

// writeBatchSize bounds the tuples written per transaction
const writeBatchSize = 1000

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB-backed store at path, or an in-memory
// instance when path is empty
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable BadgerDB logs for now

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func metaKey(name string) []byte {
	return concatBytes(metaPrefix, []byte(name))
}

func rowsPrefix(name string) []byte {
	return concatBytes(rowPrefix, []byte(name), []byte{0})
}

func rowKey(name string, tuple datalog.Tuple) ([]byte, error) {
	enc, err := datalog.EncodeTuple(tuple)
	if err != nil {
		return nil, err
	}
	return concatBytes(rowsPrefix(name), enc), nil
}

func readArity(txn *badger.Txn, name string) (int, error) {
	item, err := txn.Get(metaKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, noTable(name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read table metadata: %w", err)
	}
	var arity int
	err = item.Value(func(val []byte) error {
		n, sz := binary.Uvarint(val)
		if sz <= 0 {
			return fmt.Errorf("corrupt arity for table %s", name)
		}
		arity = int(n)
		return nil
	})
	return arity, err
}

func (s *BadgerStore) CreateTable(name string, arity int) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		have, err := readArity(txn, name)
		if err == nil {
			if have != arity {
				return arityMismatch(name, have, arity)
			}
			return nil
		}
		if !datalog.IsKind(err, datalog.UndeclaredError) {
			return err
		}
		return txn.Set(metaKey(name), binary.AppendUvarint(nil, uint64(arity)))
	})
}

func (s *BadgerStore) HasTable(name string) (bool, error) {
	_, err := s.Arity(name)
	if datalog.IsKind(err, datalog.UndeclaredError) {
		return false, nil
	}
	return err == nil, err
}

func (s *BadgerStore) Arity(name string) (int, error) {
	var arity int
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		arity, err = readArity(txn, name)
		return err
	})
	return arity, err
}

func (s *BadgerStore) DropTable(name string) error {
	if _, err := s.Arity(name); err != nil {
		return err
	}
	if err := s.deleteRows(name); err != nil {
		return fmt.Errorf("failed to drop rows of %s: %w", name, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(name))
	})
}

func (s *BadgerStore) ClearTable(name string) error {
	if _, err := s.Arity(name); err != nil {
		return err
	}
	if err := s.deleteRows(name); err != nil {
		return fmt.Errorf("failed to clear %s: %w", name, err)
	}
	return nil
}

func (s *BadgerStore) deleteRows(name string) error {
	prefix := rowsPrefix(name)
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Insert writes tuples in batches, counting keys that were absent
func (s *BadgerStore) Insert(name string, tuples []datalog.Tuple) (int, error) {
	return s.mutate(name, tuples, func(txn *badger.Txn, key []byte, exists bool) (bool, error) {
		if exists {
			return false, nil
		}
		return true, txn.Set(key, nil)
	})
}

// Delete removes tuples in batches, counting keys that were present
func (s *BadgerStore) Delete(name string, tuples []datalog.Tuple) (int, error) {
	return s.mutate(name, tuples, func(txn *badger.Txn, key []byte, exists bool) (bool, error) {
		if !exists {
			return false, nil
		}
		return true, txn.Delete(key)
	})
}

func (s *BadgerStore) mutate(name string, tuples []datalog.Tuple,
	apply func(txn *badger.Txn, key []byte, exists bool) (bool, error)) (int, error) {
	arity, err := s.Arity(name)
	if err != nil {
		return 0, err
	}
	if err := checkArity(name, arity, tuples); err != nil {
		return 0, err
	}

	changed := 0
	for start := 0; start < len(tuples); start += writeBatchSize {
		end := min(start+writeBatchSize, len(tuples))
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, tuple := range tuples[start:end] {
				key, err := rowKey(name, tuple)
				if err != nil {
					return err
				}
				_, err = txn.Get(key)
				if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
				did, err := apply(txn, key, err == nil)
				if err != nil {
					return err
				}
				if did {
					changed++
				}
			}
			return nil
		})
		if err != nil {
			return changed, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return changed, nil
}

func (s *BadgerStore) Scan(name string) ([]datalog.Tuple, error) {
	arity, err := s.Arity(name)
	if err != nil {
		return nil, err
	}
	var out []datalog.Tuple
	prefix := rowsPrefix(name)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			tuple, err := datalog.DecodeTuple(key[len(prefix):], arity)
			if err != nil {
				return fmt.Errorf("failed to decode row of %s: %w", name, err)
			}
			out = append(out, tuple)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) Len(name string) (int, error) {
	if _, err := s.Arity(name); err != nil {
		return 0, err
	}
	count := 0
	prefix := rowsPrefix(name)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) Tables() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = metaPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(metaPrefix); it.ValidForPrefix(metaPrefix); it.Next() {
			names = append(names, string(bytes.TrimPrefix(it.Item().Key(), metaPrefix)))
		}
		return nil
	})
	return names, err
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
