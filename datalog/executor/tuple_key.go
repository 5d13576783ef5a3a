package executor

import (
	"github.com/wbrown/spanlog/datalog"
)

// TupleKey represents a hashable key for a tuple or subset of tuple values
// It avoids string allocations by directly hashing the underlying data
type TupleKey struct {
	hash   uint64
	values datalog.Tuple
}

// NewTupleKey creates a key from specific tuple positions
func NewTupleKey(tuple datalog.Tuple, indices []int) TupleKey {
	values := make(datalog.Tuple, len(indices))
	for i, idx := range indices {
		values[i] = tuple[idx]
	}
	return TupleKey{hash: hashValues(values), values: values}
}

// Equal compares the keyed values
func (k TupleKey) Equal(other TupleKey) bool {
	return k.hash == other.hash && datalog.TuplesEqual(k.values, other.values)
}

// TupleIndex groups tuples by a TupleKey, resolving hash collisions by
// comparing values
type TupleIndex struct {
	buckets map[uint64][]tupleBucket
}

type tupleBucket struct {
	key  TupleKey
	rows []datalog.Tuple
}

// NewTupleIndex creates an index sized for n rows
func NewTupleIndex(n int) *TupleIndex {
	return &TupleIndex{buckets: make(map[uint64][]tupleBucket, n)}
}

// Add files row under key
func (x *TupleIndex) Add(key TupleKey, row datalog.Tuple) {
	buckets := x.buckets[key.hash]
	for i := range buckets {
		if buckets[i].key.Equal(key) {
			buckets[i].rows = append(buckets[i].rows, row)
			return
		}
	}
	x.buckets[key.hash] = append(buckets, tupleBucket{key: key, rows: []datalog.Tuple{row}})
}

// Get returns the rows filed under key
func (x *TupleIndex) Get(key TupleKey) []datalog.Tuple {
	for _, b := range x.buckets[key.hash] {
		if b.key.Equal(key) {
			return b.rows
		}
	}
	return nil
}

// hashValues computes a hash for a slice of values without string conversion
func hashValues(values datalog.Tuple) uint64 {
	// FNV-1a hash
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for _, v := range values {
		hash ^= hashValue(v)
		hash *= prime
	}

	return hash
}

// hashValue hashes a single value without string conversion
func hashValue(v datalog.Value) uint64 {
	switch val := v.(type) {
	case string:
		return hashString(val)
	case int64:
		return mix(uint64(val))
	case datalog.Span:
		return mix(uint64(val.Start)*31 ^ mix(uint64(val.End)))
	default:
		return 0
	}
}

func hashString(s string) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime
	}
	return hash
}

// mix is the splitmix64 finalizer
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
