package datalog

import (
	"strings"
)

// CompareValues compares two values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Values of different types order by type tag: strings, then ints, then spans.
// Spans order by start, then by end.
func CompareValues(left, right Value) int {
	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
	case int64:
		if r, ok := right.(int64); ok {
			return compareInt64s(l, r)
		}
	case Span:
		if r, ok := right.(Span); ok {
			if c := compareInt64s(l.Start, r.Start); c != 0 {
				return c
			}
			return compareInt64s(l.End, r.End)
		}
	}
	return compareInt64s(int64(typeRank(left)), int64(typeRank(right)))
}

func typeRank(v Value) int {
	switch v.(type) {
	case nil:
		return -1
	case string:
		return int(TypeString)
	case int64:
		return int(TypeInt)
	case Span:
		return int(TypeSpan)
	}
	return 100
}

// compareInt64s compares two int64 values
func compareInt64s(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// ValuesEqual checks if two values are equal.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case Span:
		bv, ok := b.(Span)
		return ok && av == bv
	}
	return a == b
}

// CompareTuples orders tuples column by column, shorter tuples first on a tie
func CompareTuples(a, b Tuple) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt64s(int64(len(a)), int64(len(b)))
}

// TuplesEqual reports column-wise equality
func TuplesEqual(a, b Tuple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
