package executor

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/ie"
	"github.com/wbrown/spanlog/datalog/planner"
)

// ComputeIE looks up the function of rel by name and evaluates it
func (e *Executor) ComputeIE(ctx Context, rel datalog.IERelation, bounding *datalog.Relation) (datalog.Relation, error) {
	if e.functions == nil {
		return datalog.Relation{}, datalog.Errorf(datalog.SchemaError, rel.Name, "no IE functions are registered")
	}
	fn, ok := e.functions.Lookup(rel.Name)
	if !ok {
		return datalog.Relation{}, datalog.Errorf(datalog.SchemaError, rel.Name, "IE function is not registered")
	}
	return e.ComputeIERelation(ctx, rel, fn, bounding)
}

// ComputeIERelation invokes fn once per distinct input tuple and
// materializes its outputs. Input tuples come from the constant inputs of
// rel when bounding is nil, otherwise from substituting every row of
// bounding into the input variables of rel.
//
// The result's columns are the distinct input variables of rel followed
// by its outputs, so each output row stays paired with the input values
// that produced it.
func (e *Executor) ComputeIERelation(ctx Context, rel datalog.IERelation, fn ie.Function, bounding *datalog.Relation) (datalog.Relation, error) {
	return ctx.ComputeIE(rel, func() (datalog.Relation, int, error) {
		inputs, prefixes, err := e.ieInputs(rel, bounding)
		if err != nil {
			return datalog.Relation{}, 0, err
		}

		arity := len(rel.Outputs)
		expected := fn.OutputTypes(arity)
		if len(expected) != arity {
			return datalog.Relation{}, len(inputs), datalog.Errorf(datalog.SchemaError, rel.Name,
				"function %s produces %d outputs, relation %s expects %d", fn.Name, len(expected), rel, arity)
		}

		var rows []datalog.Tuple
		for i, in := range inputs {
			if err := checkInputTypes(rel, fn, in); err != nil {
				return datalog.Relation{}, len(inputs), err
			}
			outputs, err := fn.Func(in)
			if err != nil {
				return datalog.Relation{}, len(inputs), datalog.WrapError(datalog.ExecutionError, rel.Name, err,
					"function %s failed on input %s", fn.Name, in)
			}
			for _, raw := range outputs {
				out, err := ie.Normalize(raw, arity)
				if err != nil {
					return datalog.Relation{}, len(inputs), datalog.WrapError(datalog.TypeError, rel.Name, err,
						"function %s returned unsupported output %v for input %s", fn.Name, raw, in)
				}
				if len(out) == 0 && arity != 0 {
					continue
				}
				if err := checkOutputTypes(rel, fn, in, out, expected); err != nil {
					return datalog.Relation{}, len(inputs), err
				}
				row := make(datalog.Tuple, 0, len(prefixes[i])+len(out))
				row = append(row, prefixes[i]...)
				row = append(row, out...)
				rows = append(rows, row)
			}
		}

		result, err := e.materialize("ie", planner.CalcColumns(rel), rows)
		if err != nil {
			return datalog.Relation{}, len(inputs), err
		}
		e.logger.Debug("ie",
			zap.String("relation", rel.String()),
			zap.Int("inputs", len(inputs)),
			zap.Int("outputs", len(rows)),
			zap.String("output", result.Name),
		)
		return result, len(inputs), nil
	})
}

// ieInputs returns the distinct argument tuples for rel and, for each,
// the values of rel's distinct input variables
func (e *Executor) ieInputs(rel datalog.IERelation, bounding *datalog.Relation) ([]datalog.Tuple, []datalog.Tuple, error) {
	vars := rel.InputVars()
	if bounding == nil {
		if len(vars) > 0 {
			return nil, nil, datalog.Errorf(datalog.StructuralError, rel.Name,
				"IE relation %s has variable inputs but no bounding relation", rel)
		}
		in := make(datalog.Tuple, len(rel.Inputs))
		for i, t := range rel.Inputs {
			in[i] = t.Value
		}
		return []datalog.Tuple{in}, []datalog.Tuple{{}}, nil
	}

	cols := varColumns(*bounding)
	for _, v := range vars {
		if _, ok := cols[v]; !ok {
			return nil, nil, datalog.Errorf(datalog.StructuralError, rel.Name,
				"bounding relation %s does not bind input %s", bounding, v)
		}
	}
	rows, err := e.rows(*bounding)
	if err != nil {
		return nil, nil, err
	}

	prefixCols := make([]int, len(vars))
	for i, v := range vars {
		prefixCols[i] = cols[v]
	}
	seen := NewTupleIndex(len(rows))
	var inputs, prefixes []datalog.Tuple
	for _, row := range rows {
		key := NewTupleKey(row, prefixCols)
		if seen.Get(key) != nil {
			continue
		}
		seen.Add(key, row)

		in := make(datalog.Tuple, len(rel.Inputs))
		for i, t := range rel.Inputs {
			if t.IsVar() {
				in[i] = row[cols[t.VarName()]]
			} else {
				in[i] = t.Value
			}
		}
		inputs = append(inputs, in)
		prefixes = append(prefixes, key.values)
	}
	return inputs, prefixes, nil
}

func checkInputTypes(rel datalog.IERelation, fn ie.Function, in datalog.Tuple) error {
	if fn.InputSchema == nil {
		return nil
	}
	if len(fn.InputSchema) != len(in) {
		return datalog.Errorf(datalog.SchemaError, rel.Name,
			"function %s takes %d inputs, relation %s passes %d", fn.Name, len(fn.InputSchema), rel, len(in))
	}
	for i, v := range in {
		t, err := datalog.TypeOf(v)
		if err != nil || t != fn.InputSchema[i] {
			return datalog.Errorf(datalog.TypeError, rel.Name,
				"function %s expects %s for input %d, got %s", fn.Name, fn.InputSchema[i], i, datalog.FormatValue(v))
		}
	}
	return nil
}

func checkOutputTypes(rel datalog.IERelation, fn ie.Function, in, out datalog.Tuple, expected []datalog.DataType) error {
	if len(out) != len(expected) {
		return datalog.Errorf(datalog.TypeError, rel.Name,
			"function %s returned output %s of arity %d for input %s, expected arity %d",
			fn.Name, out, len(out), in, len(expected))
	}
	for i, v := range out {
		t, err := datalog.TypeOf(v)
		if err != nil || t != expected[i] {
			return datalog.Errorf(datalog.TypeError, rel.Name,
				"function %s returned output %s for input %s, expected types %v",
				fn.Name, out, in, expected)
		}
	}
	return nil
}
