package datalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a constant stored in a relation.
// Valid value types:
// - string
// - int64
// - Span
type Value = interface{}

// Tuple is one row of a relation
type Tuple []Value

// Span is a half-open character range [Start, End) into some text
type Span struct {
	Start int64
	End   int64
}

// String returns the [start,end) text form of a span
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// ParseSpan parses the [start,end) form produced by Span.String
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, ")") {
		return Span{}, Errorf(TypeError, "", "malformed span literal %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return Span{}, Errorf(TypeError, "", "malformed span literal %q", s)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Span{}, WrapError(TypeError, "", err, "malformed span start in %q", s)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Span{}, WrapError(TypeError, "", err, "malformed span end in %q", s)
	}
	return Span{Start: start, End: end}, nil
}

// TypeOf returns the schema type of a stored value
func TypeOf(v Value) (DataType, error) {
	switch v.(type) {
	case string:
		return TypeString, nil
	case int64:
		return TypeInt, nil
	case Span:
		return TypeSpan, nil
	}
	return 0, Errorf(TypeError, "", "unsupported value type %T", v)
}

// NormalizeValue converts the loosely typed values an IE function or a
// decoder may produce into a stored value: any Go integer becomes int64,
// a two element integer array or slice becomes a Span.
func NormalizeValue(v interface{}) (Value, error) {
	switch val := v.(type) {
	case string, int64, Span:
		return val, nil
	case *Span:
		return *val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case [2]int:
		return Span{Start: int64(val[0]), End: int64(val[1])}, nil
	case [2]int64:
		return Span{Start: val[0], End: val[1]}, nil
	case []int:
		if len(val) == 2 {
			return Span{Start: int64(val[0]), End: int64(val[1])}, nil
		}
	case []int64:
		if len(val) == 2 {
			return Span{Start: val[0], End: val[1]}, nil
		}
	case []interface{}:
		if len(val) == 2 {
			s, err1 := NormalizeValue(val[0])
			e, err2 := NormalizeValue(val[1])
			si, ok1 := s.(int64)
			ei, ok2 := e.(int64)
			if err1 == nil && err2 == nil && ok1 && ok2 {
				return Span{Start: si, End: ei}, nil
			}
		}
	}
	return nil, Errorf(TypeError, "", "unsupported value %v of type %T", v, v)
}

// FormatValue renders a value for display
func FormatValue(v Value) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case Span:
		return val.String()
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// String renders a tuple as (v1, v2, ...), with strings quoted
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		if s, ok := v.(string); ok {
			parts[i] = strconv.Quote(s)
		} else {
			parts[i] = FormatValue(v)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
