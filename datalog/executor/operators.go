package executor

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/annotations"
)

// rows reads the table behind rel after checking the descriptor matches it
func (e *Executor) rows(rel datalog.Relation) ([]datalog.Tuple, error) {
	arity, err := e.store.Arity(rel.Name)
	if err != nil {
		return nil, err
	}
	if arity != len(rel.Terms) {
		return nil, datalog.Errorf(datalog.StructuralError, rel.Name,
			"relation has %d terms but its table has arity %d", len(rel.Terms), arity)
	}
	return e.store.Scan(rel.Name)
}

// materialize writes rows into a fresh scratch table described by terms
func (e *Executor) materialize(prefix string, terms []datalog.Term, rows []datalog.Tuple) (datalog.Relation, error) {
	name, err := e.newTable(prefix, len(terms))
	if err != nil {
		return datalog.Relation{}, err
	}
	if len(rows) > 0 {
		if _, err := e.store.Insert(name, rows); err != nil {
			return datalog.Relation{}, err
		}
	}
	return datalog.Relation{Name: name, Terms: terms}, nil
}

func (e *Executor) logOperator(op string, inputs []datalog.Relation, out datalog.Relation) {
	if ce := e.logger.Check(zap.DebugLevel, op); ce != nil {
		ce.Write(
			zap.Strings("inputs", relationNames(inputs)),
			zap.String("output", out.Name),
			zap.Int("rows", e.size(out.Name)),
		)
	}
}

// Select returns a new relation holding the rows of src that satisfy every
// condition. The arity and terms of src are kept.
func (e *Executor) Select(ctx Context, src datalog.Relation, conds []Condition) (datalog.Relation, error) {
	inputs := []datalog.Relation{src}
	return ctx.ApplyOperator(annotations.OperatorSelect, inputs, func() (datalog.Relation, error) {
		for _, c := range conds {
			if c.Column < 0 || c.Column >= len(src.Terms) || c.SameAs >= len(src.Terms) {
				return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, src.Name,
					"condition %s is out of range for arity %d", c, len(src.Terms))
			}
		}
		rows, err := e.rows(src)
		if err != nil {
			return datalog.Relation{}, err
		}

		var kept []datalog.Tuple
	next:
		for _, row := range rows {
			for _, c := range conds {
				if !c.Holds(row) {
					continue next
				}
			}
			kept = append(kept, row)
		}

		out, err := e.materialize("select", src.Terms, kept)
		if err != nil {
			return datalog.Relation{}, err
		}
		e.logOperator("select", inputs, out)
		return out, nil
	})
}

// Project returns a new relation keeping the columns of the free variables
// vars, in that order. A variable may be listed more than once. Projecting
// onto no variables yields the boolean result: one empty tuple if src has
// any rows, none otherwise.
func (e *Executor) Project(ctx Context, src datalog.Relation, vars []string) (datalog.Relation, error) {
	inputs := []datalog.Relation{src}
	return ctx.ApplyOperator(annotations.OperatorProject, inputs, func() (datalog.Relation, error) {
		cols := varColumns(src)
		indices := make([]int, len(vars))
		for i, v := range vars {
			col, ok := cols[v]
			if !ok {
				return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, src.Name,
					"cannot project onto %s: not a column of %s", v, src)
			}
			indices[i] = col
		}

		rows, err := e.rows(src)
		if err != nil {
			return datalog.Relation{}, err
		}

		projected := make([]datalog.Tuple, 0, len(rows))
		for _, row := range rows {
			t := make(datalog.Tuple, len(indices))
			for i, col := range indices {
				t[i] = row[col]
			}
			projected = append(projected, t)
			if len(indices) == 0 {
				break
			}
		}

		out, err := e.materialize("project", varTerms(vars), projected)
		if err != nil {
			return datalog.Relation{}, err
		}
		e.logOperator("project", inputs, out)
		return out, nil
	})
}

// Union returns the set union of rels, which must all have the same free
// variable columns in the same order. A single relation is returned as is.
func (e *Executor) Union(ctx Context, rels []datalog.Relation) (datalog.Relation, error) {
	if len(rels) == 0 {
		return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "", "union of zero relations")
	}
	for _, r := range rels[1:] {
		if !sameVarColumns(rels[0], r) {
			return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, r.Name,
				"union columns differ: %s vs %s", rels[0], r)
		}
	}
	if len(rels) == 1 {
		return rels[0], nil
	}

	return ctx.ApplyOperator(annotations.OperatorUnion, rels, func() (datalog.Relation, error) {
		var all []datalog.Tuple
		for _, r := range rels {
			rows, err := e.rows(r)
			if err != nil {
				return datalog.Relation{}, err
			}
			all = append(all, rows...)
		}
		out, err := e.materialize("union", rels[0].Terms, all)
		if err != nil {
			return datalog.Relation{}, err
		}
		e.logOperator("union", rels, out)
		return out, nil
	})
}

// Copy appends the rows of src to the table dest, creating it if absent.
// An empty dest copies into a fresh scratch table.
func (e *Executor) Copy(ctx Context, src datalog.Relation, dest string) (datalog.Relation, error) {
	inputs := []datalog.Relation{src}
	return ctx.ApplyOperator(annotations.OperatorCopy, inputs, func() (datalog.Relation, error) {
		rows, err := e.rows(src)
		if err != nil {
			return datalog.Relation{}, err
		}
		if dest == "" {
			out, err := e.materialize("copy", src.Terms, rows)
			if err != nil {
				return datalog.Relation{}, err
			}
			e.logOperator("copy", inputs, out)
			return out, nil
		}

		if err := e.store.CreateTable(dest, len(src.Terms)); err != nil {
			return datalog.Relation{}, err
		}
		if len(rows) > 0 {
			if _, err := e.store.Insert(dest, rows); err != nil {
				return datalog.Relation{}, err
			}
		}
		out := datalog.Relation{Name: dest, Terms: src.Terms}
		e.logOperator("copy", inputs, out)
		return out, nil
	})
}
