package executor

import (
	"fmt"

	"github.com/wbrown/spanlog/datalog"
)

// Condition is one conjunct of a selection: column Column must equal the
// constant Value, or, when SameAs is not -1, the value in column SameAs
type Condition struct {
	Column int
	Value  datalog.Value
	SameAs int
}

func (c Condition) String() string {
	if c.SameAs >= 0 {
		return fmt.Sprintf("$%d = $%d", c.Column, c.SameAs)
	}
	return fmt.Sprintf("$%d = %s", c.Column, datalog.FormatValue(c.Value))
}

// Holds reports whether tuple satisfies the condition
func (c Condition) Holds(tuple datalog.Tuple) bool {
	if c.SameAs >= 0 {
		return datalog.ValuesEqual(tuple[c.Column], tuple[c.SameAs])
	}
	return datalog.ValuesEqual(tuple[c.Column], c.Value)
}

// Conditions derives the selection a relation's terms impose: constants
// must match and repeated free variables must agree with their first
// occurrence
func Conditions(rel datalog.Relation) []Condition {
	var conds []Condition
	first := make(map[string]int)
	for i, t := range rel.Terms {
		switch {
		case t.Type.IsConstant():
			conds = append(conds, Condition{Column: i, Value: t.Value, SameAs: -1})
		case t.IsVar():
			if j, seen := first[t.VarName()]; seen {
				conds = append(conds, Condition{Column: i, SameAs: j})
			} else {
				first[t.VarName()] = i
			}
		}
	}
	return conds
}

// varColumns maps each free variable of rel to its first column
func varColumns(rel datalog.Relation) map[string]int {
	cols := make(map[string]int, len(rel.Terms))
	for i, t := range rel.Terms {
		if t.IsVar() {
			if _, seen := cols[t.VarName()]; !seen {
				cols[t.VarName()] = i
			}
		}
	}
	return cols
}

func varTerms(vars []string) []datalog.Term {
	terms := make([]datalog.Term, len(vars))
	for i, v := range vars {
		terms[i] = datalog.Var(v)
	}
	return terms
}

func relationNames(rels []datalog.Relation) []string {
	names := make([]string, len(rels))
	for i, r := range rels {
		names[i] = r.Name
	}
	return names
}

func sameVarColumns(a, b datalog.Relation) bool {
	if len(a.Terms) != len(b.Terms) {
		return false
	}
	for i := range a.Terms {
		if !a.Terms[i].IsVar() || !b.Terms[i].IsVar() || a.Terms[i].VarName() != b.Terms[i].VarName() {
			return false
		}
	}
	return true
}
