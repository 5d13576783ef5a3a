package executor

import (
	"sort"
	"strings"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/planner"
)

// QueryResult is the answer to a query. A query without free variables
// has no columns and is a boolean: false when Tuples is empty, true when
// it holds the single empty tuple.
type QueryResult struct {
	Query   datalog.Relation
	Columns []string
	Tuples  []datalog.Tuple
}

// IsBool reports whether the result is a boolean
func (r *QueryResult) IsBool() bool {
	return len(r.Columns) == 0
}

// Bool returns the boolean answer; for tuple results it reports non-emptiness
func (r *QueryResult) Bool() bool {
	return len(r.Tuples) > 0
}

// Len returns the number of result tuples
func (r *QueryResult) Len() int {
	return len(r.Tuples)
}

// String renders [] for false, [()] for true, else the tuple list
func (r *QueryResult) String() string {
	if r.IsBool() {
		if r.Bool() {
			return "[()]"
		}
		return "[]"
	}
	parts := make([]string, len(r.Tuples))
	for i, t := range r.Tuples {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Table renders the result as a markdown table
func (r *QueryResult) Table() string {
	return NewTableFormatter().FormatResult(r)
}

// Query answers q against the current contents of its table. Constants and
// repeated variables in q select rows; the answer keeps q's free variables
// in order of first appearance, sorted and duplicate free.
func (e *Executor) Query(ctx Context, q datalog.Relation) (*QueryResult, error) {
	ctx.QueryBegin(q.String())
	res, err := e.query(ctx, q)
	if dropErr := e.DropTemporaryTables(); err == nil && dropErr != nil {
		err = dropErr
	}
	if err != nil {
		ctx.QueryComplete(0, 0, err)
		return nil, err
	}
	ctx.QueryComplete(1, len(res.Tuples), nil)
	return res, nil
}

// EvaluateQuery evaluates the rules q depends on, then answers q
func (e *Executor) EvaluateQuery(ctx Context, graph *planner.TermGraph, q datalog.Relation) (*QueryResult, error) {
	if err := e.Evaluate(ctx, graph, q.Name); err != nil {
		ctx.QueryBegin(q.String())
		ctx.QueryComplete(0, 0, err)
		return nil, err
	}
	return e.Query(ctx, q)
}

func (e *Executor) query(ctx Context, q datalog.Relation) (*QueryResult, error) {
	arity, err := e.store.Arity(q.Name)
	if err != nil {
		return nil, err
	}
	if arity != q.Arity() {
		return nil, datalog.Errorf(datalog.SchemaError, q.Name,
			"query %s has %d terms, relation has arity %d", q, q.Arity(), arity)
	}
	for _, t := range q.Terms {
		if t.Type == datalog.TypeVar {
			return nil, datalog.Errorf(datalog.SchemaError, q.Name, "query %s has unresolved variable %s", q, t)
		}
	}

	rel := q
	if planner.NeedsSelect(q.Terms) {
		if rel, err = e.Select(ctx, q, Conditions(q)); err != nil {
			return nil, err
		}
	}
	vars := q.FreeVars()
	projected, err := e.Project(ctx, rel, vars)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Scan(projected.Name)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return datalog.CompareTuples(rows[i], rows[j]) < 0
	})
	return &QueryResult{Query: q, Columns: vars, Tuples: rows}, nil
}
