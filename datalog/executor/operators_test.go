package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/spanlog/datalog"
)

func scan(t *testing.T, e *Executor, r datalog.Relation) []datalog.Tuple {
	t.Helper()
	rows, err := e.Scan(r.Name)
	require.NoError(t, err)
	return rows
}

func TestSelect(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "pair", datalog.TypeString, datalog.TypeString)
	addFacts(t, e, "pair", strs("a", "a"), strs("a", "b"), strs("b", "b"), strs("c", "a"))
	ctx := NewContext(nil)

	t.Run("constant", func(t *testing.T) {
		out, err := e.Select(ctx, rel("pair", datalog.Str("a"), Y), Conditions(rel("pair", datalog.Str("a"), Y)))
		require.NoError(t, err)
		assert.Equal(t, 2, out.Arity())
		assert.ElementsMatch(t, tuplesOf(row("a", "a"), row("a", "b")), scan(t, e, out))
	})

	t.Run("repeated variable", func(t *testing.T) {
		src := rel("pair", X, X)
		out, err := e.Select(ctx, src, Conditions(src))
		require.NoError(t, err)
		assert.ElementsMatch(t, tuplesOf(row("a", "a"), row("b", "b")), scan(t, e, out))
	})

	t.Run("no conditions keeps everything", func(t *testing.T) {
		out, err := e.Select(ctx, rel("pair", X, Y), nil)
		require.NoError(t, err)
		assert.Len(t, scan(t, e, out), 4)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := e.Select(ctx, rel("pair", X, Y), []Condition{{Column: 5, Value: "a", SameAs: -1}})
		assert.True(t, datalog.IsKind(err, datalog.StructuralError))
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := e.Select(ctx, rel("nope", X), nil)
		assert.True(t, datalog.IsKind(err, datalog.UndeclaredError))
	})

	t.Run("input untouched", func(t *testing.T) {
		n, err := e.TableLength("pair")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}

func TestConditions(t *testing.T) {
	conds := Conditions(rel("r", X, datalog.Int(3), X, Y))
	require.Len(t, conds, 2)
	assert.Equal(t, "$1 = 3", conds[0].String())
	assert.Equal(t, "$2 = $0", conds[1].String())
	assert.True(t, conds[1].Holds(datalog.Tuple{"a", int64(3), "a", "z"}))
	assert.False(t, conds[0].Holds(datalog.Tuple{"a", int64(4), "a", "z"}))
}

func TestProject(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "pair", datalog.TypeString, datalog.TypeInt)
	addFacts(t, e, "pair",
		[]datalog.Term{datalog.Str("a"), datalog.Int(1)},
		[]datalog.Term{datalog.Str("a"), datalog.Int(2)},
		[]datalog.Term{datalog.Str("b"), datalog.Int(1)},
	)
	ctx := NewContext(nil)
	src := rel("pair", X, Y)

	t.Run("collapses duplicates", func(t *testing.T) {
		out, err := e.Project(ctx, src, []string{"X"})
		require.NoError(t, err)
		assert.Equal(t, []datalog.Term{X}, out.Terms)
		assert.ElementsMatch(t, tuplesOf(row("a"), row("b")), scan(t, e, out))
	})

	t.Run("reorders columns", func(t *testing.T) {
		out, err := e.Project(ctx, src, []string{"Y", "X"})
		require.NoError(t, err)
		assert.Contains(t, scan(t, e, out), datalog.Tuple{int64(2), "a"})
	})

	t.Run("no variables is a boolean", func(t *testing.T) {
		out, err := e.Project(ctx, src, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Arity())
		assert.Len(t, scan(t, e, out), 1)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := e.Project(ctx, src, []string{"Z"})
		assert.True(t, datalog.IsKind(err, datalog.StructuralError))
	})
}

func TestProjectEmptyIsFalse(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "empty", datalog.TypeString)
	out, err := e.Project(NewContext(nil), rel("empty", X), nil)
	require.NoError(t, err)
	assert.Empty(t, scan(t, e, out))
}

func TestUnion(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "a", datalog.TypeString)
	declare(t, e, "b", datalog.TypeString)
	addFacts(t, e, "a", strs("x"), strs("y"))
	addFacts(t, e, "b", strs("y"), strs("z"))
	ctx := NewContext(nil)

	out, err := e.Union(ctx, []datalog.Relation{rel("a", X), rel("b", X)})
	require.NoError(t, err)
	assert.ElementsMatch(t, tuplesOf(row("x"), row("y"), row("z")), scan(t, e, out))

	single, err := e.Union(ctx, []datalog.Relation{rel("a", X)})
	require.NoError(t, err)
	assert.Equal(t, "a", single.Name)

	_, err = e.Union(ctx, nil)
	assert.True(t, datalog.IsKind(err, datalog.StructuralError))

	_, err = e.Union(ctx, []datalog.Relation{rel("a", X), rel("b", Y)})
	assert.True(t, datalog.IsKind(err, datalog.StructuralError))
}

func TestJoin(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "parent", datalog.TypeString, datalog.TypeString)
	declare(t, e, "color", datalog.TypeString)
	addFacts(t, e, "parent", strs("a", "b"), strs("b", "c"), strs("b", "d"))
	addFacts(t, e, "color", strs("red"), strs("blue"))
	ctx := NewContext(nil)

	t.Run("shared variable", func(t *testing.T) {
		out, err := e.Join(ctx, []datalog.Relation{rel("parent", X, Z), rel("parent", Z, Y)})
		require.NoError(t, err)
		assert.Equal(t, []datalog.Term{X, Z, Y}, out.Terms)
		assert.ElementsMatch(t, tuplesOf(row("a", "b", "c"), row("a", "b", "d")), scan(t, e, out))
	})

	t.Run("cross product", func(t *testing.T) {
		out, err := e.Join(ctx, []datalog.Relation{rel("parent", X, Y), rel("color", Z)})
		require.NoError(t, err)
		assert.Len(t, scan(t, e, out), 6)
	})

	t.Run("constants drop out of the columns", func(t *testing.T) {
		out, err := e.Join(ctx, []datalog.Relation{rel("parent", datalog.Str("b"), Y), rel("color", Z)})
		require.NoError(t, err)
		assert.Equal(t, []datalog.Term{Y, Z}, out.Terms)
		assert.Len(t, scan(t, e, out), 4)
	})

	t.Run("single relation copies", func(t *testing.T) {
		out, err := e.Join(ctx, []datalog.Relation{rel("color", Z)})
		require.NoError(t, err)
		assert.NotEqual(t, "color", out.Name)
		assert.Len(t, scan(t, e, out), 2)
	})

	t.Run("zero relations", func(t *testing.T) {
		_, err := e.Join(ctx, nil)
		assert.True(t, datalog.IsKind(err, datalog.StructuralError))
	})
}

func TestHashJoinBuildsEitherSide(t *testing.T) {
	small := joinInput{vars: []string{"X"}, rows: tuplesOf(row("a"))}
	large := joinInput{vars: []string{"X", "Y"}, rows: tuplesOf(row("a", int64(1)), row("a", int64(2)), row("b", int64(3)))}

	left := hashJoin(small, large)
	right := hashJoin(large, small)
	assert.Equal(t, []string{"X", "Y"}, left.vars)
	assert.ElementsMatch(t, tuplesOf(row("a", int64(1)), row("a", int64(2))), left.rows)
	assert.ElementsMatch(t, left.rows, right.rows)
}

func TestCopy(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "a", datalog.TypeString)
	addFacts(t, e, "a", strs("x"), strs("y"))
	ctx := NewContext(nil)

	out, err := e.Copy(ctx, rel("a", X), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", out.Name)
	n, err := e.TableLength("b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Copying again appends with set semantics
	_, err = e.Copy(ctx, rel("a", X), "b")
	require.NoError(t, err)
	n, err = e.TableLength("b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	declare(t, e, "wide", datalog.TypeString, datalog.TypeString)
	_, err = e.Copy(ctx, rel("a", X), "wide")
	assert.True(t, datalog.IsKind(err, datalog.StructuralError))
}

func TestScratchTablesNeverCollide(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "a", datalog.TypeString)
	addFacts(t, e, "a", strs("x"))
	ctx := NewContext(nil)

	first, err := e.Copy(ctx, rel("a", X), "")
	require.NoError(t, err)
	second, err := e.Copy(ctx, rel("a", X), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)
	assert.True(t, datalog.IsReservedName(first.Name))
	assert.Equal(t, 2, e.TemporaryTables())

	require.NoError(t, e.DropTemporaryTables())
	assert.Equal(t, 0, e.TemporaryTables())
	ok, err := e.HasRelation(first.Name)
	require.NoError(t, err)
	assert.False(t, ok)
}
