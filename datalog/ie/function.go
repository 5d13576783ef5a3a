// Package ie holds information-extraction functions: external callables
// whose outputs become the rows of an IE relation.
package ie

import (
	"github.com/wbrown/spanlog/datalog"
)

// Func is invoked once per input tuple. Each returned output is a tuple
// (datalog.Tuple or []interface{}) or a bare value, which counts as a
// 1-tuple. A two-element integer pair stands in for a span.
type Func func(args datalog.Tuple) ([]interface{}, error)

// Function describes a registered IE function
type Function struct {
	Name        string
	Func        Func
	InputSchema []datalog.DataType
	// OutputSchema is the fixed output schema. Functions with a variable
	// number of outputs set OutputSchemaFunc instead.
	OutputSchema     []datalog.DataType
	OutputSchemaFunc func(arity int) []datalog.DataType
}

// OutputTypes returns the output schema for an IE relation with arity outputs
func (f Function) OutputTypes(arity int) []datalog.DataType {
	if f.OutputSchemaFunc != nil {
		return f.OutputSchemaFunc(arity)
	}
	return f.OutputSchema
}

// Repeat returns an arity-dependent schema of a single type
func Repeat(t datalog.DataType) func(arity int) []datalog.DataType {
	return func(arity int) []datalog.DataType {
		schema := make([]datalog.DataType, arity)
		for i := range schema {
			schema[i] = t
		}
		return schema
	}
}

// Normalize turns one raw output into a tuple of stored values for an
// IE relation expecting arity outputs
func Normalize(output interface{}, arity int) (datalog.Tuple, error) {
	switch out := output.(type) {
	case datalog.Tuple:
		return normalizeAll(out)
	case []interface{}:
		if arity == 1 && len(out) == 2 {
			if span, err := datalog.NormalizeValue(out); err == nil {
				return datalog.Tuple{span}, nil
			}
		}
		return normalizeAll(out)
	case []string:
		t := make(datalog.Tuple, len(out))
		for i, s := range out {
			t[i] = s
		}
		return t, nil
	case []datalog.Span:
		t := make(datalog.Tuple, len(out))
		for i, s := range out {
			t[i] = s
		}
		return t, nil
	}
	v, err := datalog.NormalizeValue(output)
	if err != nil {
		return nil, err
	}
	return datalog.Tuple{v}, nil
}

func normalizeAll(values []interface{}) (datalog.Tuple, error) {
	t := make(datalog.Tuple, len(values))
	for i, raw := range values {
		v, err := datalog.NormalizeValue(raw)
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}
