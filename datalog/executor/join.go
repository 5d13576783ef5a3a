package executor

import (
	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/annotations"
)

// joinInput is a relation reduced to its free variable columns
type joinInput struct {
	vars []string
	rows []datalog.Tuple
}

// Join computes the natural join of rels over their shared free variables.
// The result has one column per distinct free variable, in order of first
// appearance across rels. Relations sharing no variable are crossed.
// Constants and repeated variables inside one relation are enforced before
// its columns are reduced.
func (e *Executor) Join(ctx Context, rels []datalog.Relation) (datalog.Relation, error) {
	switch len(rels) {
	case 0:
		return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "", "join of zero relations")
	case 1:
		return e.Copy(ctx, rels[0], "")
	}

	return ctx.ApplyOperator(annotations.OperatorJoin, rels, func() (datalog.Relation, error) {
		acc, err := e.joinInput(rels[0])
		if err != nil {
			return datalog.Relation{}, err
		}
		for _, rel := range rels[1:] {
			next, err := e.joinInput(rel)
			if err != nil {
				return datalog.Relation{}, err
			}
			acc = hashJoin(acc, next)
		}

		out, err := e.materialize("join", varTerms(acc.vars), acc.rows)
		if err != nil {
			return datalog.Relation{}, err
		}
		e.logOperator("join", rels, out)
		return out, nil
	})
}

func (e *Executor) joinInput(rel datalog.Relation) (joinInput, error) {
	rows, err := e.rows(rel)
	if err != nil {
		return joinInput{}, err
	}
	conds := Conditions(rel)

	var vars []string
	var cols []int
	seen := make(map[string]bool)
	for i, t := range rel.Terms {
		if t.IsVar() && !seen[t.VarName()] {
			seen[t.VarName()] = true
			vars = append(vars, t.VarName())
			cols = append(cols, i)
		}
	}

	in := joinInput{vars: vars, rows: make([]datalog.Tuple, 0, len(rows))}
next:
	for _, row := range rows {
		for _, c := range conds {
			if !c.Holds(row) {
				continue next
			}
		}
		t := make(datalog.Tuple, len(cols))
		for i, col := range cols {
			t[i] = row[col]
		}
		in.rows = append(in.rows, t)
	}
	return in, nil
}

// hashJoin builds on the smaller input and probes with the larger one.
// Output columns are left's variables followed by right's new ones.
func hashJoin(left, right joinInput) joinInput {
	rightPos := make(map[string]int, len(right.vars))
	for i, v := range right.vars {
		rightPos[v] = i
	}
	var leftKey, rightKey []int
	for i, v := range left.vars {
		if j, ok := rightPos[v]; ok {
			leftKey = append(leftKey, i)
			rightKey = append(rightKey, j)
		}
	}
	shared := make(map[int]bool, len(rightKey))
	for _, j := range rightKey {
		shared[j] = true
	}
	var rightExtra []int
	for j := range right.vars {
		if !shared[j] {
			rightExtra = append(rightExtra, j)
		}
	}

	combine := func(l, r datalog.Tuple) datalog.Tuple {
		t := make(datalog.Tuple, 0, len(l)+len(rightExtra))
		t = append(t, l...)
		for _, j := range rightExtra {
			t = append(t, r[j])
		}
		return t
	}

	out := joinInput{vars: mergeVars(left.vars, right.vars)}
	if len(left.rows) <= len(right.rows) {
		index := NewTupleIndex(len(left.rows))
		for _, l := range left.rows {
			index.Add(NewTupleKey(l, leftKey), l)
		}
		for _, r := range right.rows {
			for _, l := range index.Get(NewTupleKey(r, rightKey)) {
				out.rows = append(out.rows, combine(l, r))
			}
		}
	} else {
		index := NewTupleIndex(len(right.rows))
		for _, r := range right.rows {
			index.Add(NewTupleKey(r, rightKey), r)
		}
		for _, l := range left.rows {
			for _, r := range index.Get(NewTupleKey(l, leftKey)) {
				out.rows = append(out.rows, combine(l, r))
			}
		}
	}
	return out
}

func mergeVars(left, right []string) []string {
	out := append([]string(nil), left...)
	seen := make(map[string]bool, len(left))
	for _, v := range left {
		seen[v] = true
	}
	for _, v := range right {
		if !seen[v] {
			out = append(out, v)
		}
	}
	return out
}
