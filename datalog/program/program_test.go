package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/session"
)

func TestParseTerms(t *testing.T) {
	prog, err := Parse([]byte(`
statements:
  - query: {r: [X, _y, alice, "Bob", 'Z', 42, -1, [0, 5], !span "[2,3)"]}
`))
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	q, err := prog.Statements[0].Query.Relation()
	require.NoError(t, err)
	assert.Equal(t, datalog.NewRelation("r",
		datalog.Var("X"),
		datalog.Var("_y"),
		datalog.Str("alice"),
		datalog.Str("Bob"),
		datalog.Str("Z"),
		datalog.Int(42),
		datalog.Int(-1),
		datalog.SpanTerm(0, 5),
		datalog.SpanTerm(2, 3),
	), q)
}

func TestFactRowsHaveNoVariables(t *testing.T) {
	prog, err := Parse([]byte(`
statements:
  - facts:
      relation: person
      rows:
        - [Alice, 30]
`))
	require.NoError(t, err)
	facts := prog.Statements[0].Facts.Relations()
	require.Len(t, facts, 1)
	assert.Equal(t, datalog.NewRelation("person", datalog.Str("Alice"), datalog.Int(30)), facts[0])
}

func TestParseRule(t *testing.T) {
	prog, err := Parse([]byte(`
statements:
  - rule:
      head: {m: [X]}
      body:
        - {s: [S]}
        - {ie: rgx_string, inputs: [S, 'a+'], outputs: [X]}
`))
	require.NoError(t, err)
	rule, err := prog.Statements[0].Rule.Rule()
	require.NoError(t, err)

	want := datalog.NewRule(datalog.NewRelation("m", datalog.Var("X")),
		datalog.NewRelation("s", datalog.Var("S")),
		datalog.NewIERelation("rgx_string",
			[]datalog.Term{datalog.Var("S"), datalog.Str("a+")},
			[]datalog.Term{datalog.Var("X")}),
	)
	assert.True(t, want.Equal(rule), "got %s", rule)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "statements:\n  - querry: {r: [X]}\n", "querry"},
		{"empty statement", "statements:\n  - {}\n", "empty statement"},
		{"mixed statement", "statements:\n  - {export: r, clear: r}\n", "mixes"},
		{"bad term", "statements:\n  - query: {r: [true]}\n", "unsupported term"},
		{"bad span", "statements:\n  - query: {r: [[1, 2, 3]]}\n", "span"},
		{"bad span literal", "statements:\n  - query: {r: [!span \"1,2\"]}\n", "malformed span"},
		{"two keys", "statements:\n  - query: {r: [X], s: [Y]}\n", "exactly one key"},
		{"bad ie field", "statements:\n  - query: {ie: f, input: [X]}\n", "unknown IE atom field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunFamily(t *testing.T) {
	prog, err := Load(filepath.Join("testdata", "family.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "family", prog.Name)

	s := session.New(session.DefaultOptions())
	defer s.Close()

	outputs, err := Run(s, prog)
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	assert.Equal(t, 5, outputs[0].Statement)
	assert.Equal(t, `[("bob"), ("carol"), ("dave")]`, outputs[0].Result.String())
	assert.Equal(t, `[("bob")]`, outputs[1].Result.String())
	assert.True(t, outputs[2].Result.IsBool())
	assert.False(t, outputs[2].Result.Bool())
	assert.Equal(t, "?- ancestor(\"alice\", Y)\n[(\"bob\")]", outputs[1].String())
}

func TestRunTokens(t *testing.T) {
	prog, err := Load(filepath.Join("testdata", "tokens.yaml"))
	require.NoError(t, err)

	s := session.New(session.DefaultOptions())
	defer s.Close()

	outputs, err := Run(s, prog)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "[([0,3)), ([4,9)), ([10,13))]", outputs[0].Result.String())
	assert.True(t, outputs[1].Result.Bool())

	res, err := s.Query(datalog.NewRelation("word", datalog.Var("W")))
	require.NoError(t, err)
	assert.Equal(t, `[("fox"), ("quick"), ("the")]`, res.String())
}

func TestRunStopsAtFirstError(t *testing.T) {
	prog, err := Parse([]byte(`
statements:
  - declare: {name: n, schema: [int]}
  - facts: {relation: n, rows: [[1]]}
  - export: n
  - facts: {relation: n, rows: [[x]]}
  - export: n
`))
	require.NoError(t, err)

	s := session.New(session.DefaultOptions())
	defer s.Close()

	outputs, err := Run(s, prog)
	require.Error(t, err)
	assert.True(t, datalog.IsKind(err, datalog.TypeError))
	assert.Contains(t, err.Error(), "statement 4 (facts)")
	require.Len(t, outputs, 1)
	assert.Equal(t, "[(1)]", outputs[0].Result.String())
}

func TestRunRemovals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "removals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
statements:
  - declare: {name: edge, schema: [int, int]}
  - declare_rule: {name: reach, schema: [int, int]}
  - facts: {relation: edge, rows: [[1, 2], [2, 3]]}
  - rule: {head: {reach: [X, Y]}, body: [{edge: [X, Y]}]}
  - rule: {head: {reach: [X, Y]}, body: [{edge: [X, Z]}, {reach: [Z, Y]}]}
  - export: reach
  - remove_rule: {head: {reach: [X, Y]}, body: [{edge: [X, Z]}, {reach: [Z, Y]}]}
  - export: reach
  - clear: edge
  - export: reach
  - remove_relation: reach
`), 0o644))

	prog, err := Load(path)
	require.NoError(t, err)

	s := session.New(session.DefaultOptions())
	defer s.Close()

	outputs, err := Run(s, prog)
	require.NoError(t, err)
	require.Len(t, outputs, 3)
	assert.Equal(t, "[(1, 2), (1, 3), (2, 3)]", outputs[0].Result.String())
	assert.Equal(t, "[(1, 2), (2, 3)]", outputs[1].Result.String())
	assert.Equal(t, "[]", outputs[2].Result.String())
	assert.Empty(t, s.RuleRelations())
}
