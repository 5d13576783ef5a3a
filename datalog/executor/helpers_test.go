package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/ie"
	"github.com/wbrown/spanlog/datalog/planner"
	"github.com/wbrown/spanlog/datalog/storage"
)

var (
	X = datalog.Var("X")
	Y = datalog.Var("Y")
	Z = datalog.Var("Z")
	S = datalog.Var("S")
)

func rel(name string, terms ...datalog.Term) datalog.Relation {
	return datalog.NewRelation(name, terms...)
}

func newTestExecutor(t *testing.T, configure ...func(*Options)) *Executor {
	t.Helper()
	return newTestExecutorOn(t, storage.NewMemoryStore(), configure...)
}

func newTestExecutorOn(t *testing.T, store storage.Store, configure ...func(*Options)) *Executor {
	t.Helper()
	opts := DefaultOptions()
	for _, c := range configure {
		c(&opts)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, ie.NewDefaultRegistry(), opts)
}

func declare(t *testing.T, e *Executor, name string, schema ...datalog.DataType) {
	t.Helper()
	require.NoError(t, e.DeclareRelation(datalog.RelationDeclaration{Name: name, Schema: schema}))
}

func addFacts(t *testing.T, e *Executor, name string, rows ...[]datalog.Term) {
	t.Helper()
	facts := make([]datalog.Relation, len(rows))
	for i, row := range rows {
		facts[i] = rel(name, row...)
	}
	_, err := e.AddFacts(facts)
	require.NoError(t, err)
}

func strs(values ...string) []datalog.Term {
	terms := make([]datalog.Term, len(values))
	for i, v := range values {
		terms[i] = datalog.Str(v)
	}
	return terms
}

// buildGraph folds rules into a term graph the way a session does
func buildGraph(t *testing.T, rules ...datalog.Rule) *planner.TermGraph {
	t.Helper()
	g := planner.NewTermGraph()
	for _, r := range rules {
		require.NoError(t, planner.CheckSafety(r))
		g.AddRule(r, planner.RemoveUselessRelations(r))
	}
	g.PruneProjectNodes()
	return g
}

func tuplesOf(rows ...[]datalog.Value) []datalog.Tuple {
	out := make([]datalog.Tuple, len(rows))
	for i, r := range rows {
		out[i] = datalog.Tuple(r)
	}
	return out
}

func row(values ...datalog.Value) []datalog.Value {
	return values
}

func familyExecutor(t *testing.T, configure ...func(*Options)) *Executor {
	t.Helper()
	e := newTestExecutor(t, configure...)
	declare(t, e, "parent", datalog.TypeString, datalog.TypeString)
	addFacts(t, e, "parent", strs("a", "b"), strs("b", "c"))
	return e
}

func ancestorRules() []datalog.Rule {
	return []datalog.Rule{
		datalog.NewRule(rel("ancestor", X, Y), rel("parent", X, Y)),
		datalog.NewRule(rel("ancestor", X, Y), rel("parent", X, Z), rel("ancestor", Z, Y)),
	}
}
