package executor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/ie"
	"github.com/wbrown/spanlog/datalog/planner"
	"github.com/wbrown/spanlog/datalog/storage"
)

func ieRel(name string, inputs []datalog.Term, outputs ...datalog.Term) datalog.IERelation {
	return datalog.NewIERelation(name, inputs, outputs)
}

// substringSearch is rgx_string registered under the name rgx
func substringSearch(t *testing.T) *ie.Registry {
	t.Helper()
	registry := ie.NewRegistry()
	builtin, ok := ie.NewDefaultRegistry().Lookup("rgx_string")
	require.True(t, ok)
	builtin.Name = "rgx"
	require.NoError(t, registry.Register(builtin))
	return registry
}

func TestIEBinding(t *testing.T) {
	e := New(storage.NewMemoryStore(), substringSearch(t), DefaultOptions())
	declare(t, e, "sentence", datalog.TypeString)
	addFacts(t, e, "sentence", strs("foo bar"))

	g := buildGraph(t, datalog.NewRule(rel("token", X),
		rel("sentence", S),
		ieRel("rgx", []datalog.Term{S, datalog.Str(`\w+`)}, X),
	))
	res, err := e.EvaluateQuery(NewContext(nil), g, rel("token", X))
	require.NoError(t, err)
	assert.Equal(t, tuplesOf(row("bar"), row("foo")), res.Tuples)
}

func TestIEBindingResolvesBodyOrder(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "sentence", datalog.TypeString)
	addFacts(t, e, "sentence", strs("ab cd"), strs("ef"))

	// The IE relation is listed before the relation that binds its input
	g := buildGraph(t, datalog.NewRule(rel("word", S, X),
		ieRel("rgx", []datalog.Term{S, datalog.Str(`\w+`)}, X),
		rel("sentence", S),
	))
	res, err := e.EvaluateQuery(NewContext(nil), g, rel("word", datalog.Str("ab cd"), X))
	require.NoError(t, err)
	assert.Equal(t, tuplesOf(
		row(datalog.Span{Start: 0, End: 2}),
		row(datalog.Span{Start: 3, End: 5}),
	), res.Tuples)
}

func TestComputeIERelationConstantInputs(t *testing.T) {
	e := newTestExecutor(t)
	r := ieRel("rgx_string", []datalog.Term{datalog.Str("x1 y22"), datalog.Str(`([a-z])(\d+)`)}, X, Y)

	out, err := e.ComputeIE(NewContext(nil), r, nil)
	require.NoError(t, err)
	assert.Equal(t, planner.CalcColumns(r), out.Terms)
	assert.ElementsMatch(t, tuplesOf(row("x", "1"), row("y", "22")), scan(t, e, out))
}

func TestComputeIERelationBounding(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "doc", datalog.TypeString, datalog.TypeString)
	addFacts(t, e, "doc", strs("d1", "aa b"), strs("d2", "aa b"), strs("d3", "c"))

	calls := 0
	fn := ie.Function{
		Name:         "length",
		InputSchema:  []datalog.DataType{datalog.TypeString},
		OutputSchema: []datalog.DataType{datalog.TypeInt},
		Func: func(args datalog.Tuple) ([]interface{}, error) {
			calls++
			return []interface{}{len(args[0].(string))}, nil
		},
	}
	bounding := rel("doc", Z, S)
	r := ieRel("length", []datalog.Term{S}, X)

	out, err := e.ComputeIERelation(NewContext(nil), r, fn, &bounding)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "duplicate inputs are evaluated once")
	assert.Equal(t, []datalog.Term{S, X}, out.Terms)
	assert.ElementsMatch(t, tuplesOf(row("aa b", int64(4)), row("c", int64(1))), scan(t, e, out))
}

func TestComputeIERelationErrors(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "doc", datalog.TypeString)
	addFacts(t, e, "doc", strs("text"))
	bounding := rel("doc", S)
	r := ieRel("f", []datalog.Term{S}, X)
	ctx := NewContext(nil)

	fn := func(out ...interface{}) ie.Function {
		return ie.Function{
			Name:         "f",
			InputSchema:  []datalog.DataType{datalog.TypeString},
			OutputSchema: []datalog.DataType{datalog.TypeString},
			Func: func(datalog.Tuple) ([]interface{}, error) {
				return out, nil
			},
		}
	}

	t.Run("wrong output type", func(t *testing.T) {
		_, err := e.ComputeIERelation(ctx, r, fn(42), &bounding)
		require.True(t, datalog.IsKind(err, datalog.TypeError))
		assert.Contains(t, err.Error(), "function f")
		assert.Contains(t, err.Error(), `("text")`)
	})

	t.Run("wrong output arity", func(t *testing.T) {
		_, err := e.ComputeIERelation(ctx, r, fn([]interface{}{"a", "b", "c"}), &bounding)
		assert.True(t, datalog.IsKind(err, datalog.TypeError))
	})

	t.Run("unsupported value", func(t *testing.T) {
		_, err := e.ComputeIERelation(ctx, r, fn(3.5), &bounding)
		assert.True(t, datalog.IsKind(err, datalog.TypeError))
	})

	t.Run("empty outputs are skipped", func(t *testing.T) {
		out, err := e.ComputeIERelation(ctx, r, fn([]interface{}{}, "ok"), &bounding)
		require.NoError(t, err)
		assert.Equal(t, tuplesOf(row("text", "ok")), scan(t, e, out))
	})

	t.Run("function failure", func(t *testing.T) {
		failing := fn()
		failing.Func = func(datalog.Tuple) ([]interface{}, error) {
			return nil, errors.New("boom")
		}
		_, err := e.ComputeIERelation(ctx, r, failing, &bounding)
		require.True(t, datalog.IsKind(err, datalog.ExecutionError))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("wrong input type", func(t *testing.T) {
		ints := fn("x")
		ints.InputSchema = []datalog.DataType{datalog.TypeInt}
		_, err := e.ComputeIERelation(ctx, r, ints, &bounding)
		assert.True(t, datalog.IsKind(err, datalog.TypeError))
	})

	t.Run("schema arity mismatch", func(t *testing.T) {
		_, err := e.ComputeIERelation(ctx, ieRel("f", []datalog.Term{S}, X, Y), fn("x"), &bounding)
		assert.True(t, datalog.IsKind(err, datalog.SchemaError))
	})

	t.Run("missing bounding", func(t *testing.T) {
		_, err := e.ComputeIERelation(ctx, r, fn("x"), nil)
		assert.True(t, datalog.IsKind(err, datalog.StructuralError))
	})

	t.Run("unregistered function", func(t *testing.T) {
		_, err := e.ComputeIE(ctx, r, &bounding)
		assert.True(t, datalog.IsKind(err, datalog.SchemaError))
	})
}

func TestBooleanIE(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "word", datalog.TypeString)
	addFacts(t, e, "word", strs("level"), strs("hello"))
	registry := ie.NewRegistry()
	require.NoError(t, registry.Register(ie.Function{
		Name:         "palindrome",
		InputSchema:  []datalog.DataType{datalog.TypeString},
		OutputSchema: []datalog.DataType{},
		Func: func(args datalog.Tuple) ([]interface{}, error) {
			s := []rune(args[0].(string))
			for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
				if s[i] != s[j] {
					return nil, nil
				}
			}
			return []interface{}{datalog.Tuple{}}, nil
		},
	}))
	e.functions = registry

	g := buildGraph(t, datalog.NewRule(rel("pal", X), rel("word", X), ieRel("palindrome", []datalog.Term{X})))
	res, err := e.EvaluateQuery(NewContext(nil), g, rel("pal", X))
	require.NoError(t, err)
	assert.Equal(t, tuplesOf(row("level")), res.Tuples)
}
