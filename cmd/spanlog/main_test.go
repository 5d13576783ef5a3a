package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const familyProgram = `
statements:
  - declare: {name: parent, schema: [string, string]}
  - facts: {relation: parent, rows: [[alice, bob], [bob, carol]]}
  - rule: {head: {ancestor: [X, Y]}, body: [{parent: [X, Y]}]}
  - rule: {head: {ancestor: [X, Y]}, body: [{parent: [X, Z]}, {ancestor: [Z, Y]}]}
  - query: {ancestor: [alice, Y]}
  - query: {ancestor: [carol, alice]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "graph", "functions"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestRunText(t *testing.T) {
	path := writeFile(t, "family.yaml", familyProgram)
	stdout, _, err := execute(t, "run", "--format", "text", path)
	require.NoError(t, err)
	assert.Equal(t, "?- ancestor(\"alice\", Y)\n[(\"bob\"), (\"carol\")]\n\n?- ancestor(\"carol\", \"alice\")\n[]\n", stdout)
}

func TestRunTable(t *testing.T) {
	path := writeFile(t, "family.yaml", familyProgram)
	stdout, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "?- ancestor(\"alice\", Y)")
	assert.Contains(t, stdout, "carol")
	assert.Contains(t, stdout, "_2 rows_")
	assert.Contains(t, stdout, "_false_")
}

func TestRunOnSQLiteWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, "spanlog.yaml", "store:\n  backend: sqlite\n  path: "+filepath.Join(dir, "family.db")+"\nengine:\n  parallel_clauses: true\n")
	path := writeFile(t, "family.yaml", familyProgram)

	stdout, _, err := execute(t, "run", "-c", cfg, "-f", "text", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `[("bob"), ("carol")]`)
}

func TestRunTrace(t *testing.T) {
	path := writeFile(t, "family.yaml", familyProgram)
	_, stderr, err := execute(t, "run", "--trace", path)
	require.NoError(t, err)
	assert.NotEmpty(t, stderr)
}

func TestRunErrors(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
statements:
  - declare: {name: n, schema: [int]}
  - query: {m: [X]}
`)
	_, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 (query)")

	_, _, err = execute(t, "run", "--format", "json", path)
	assert.ErrorContains(t, err, "invalid format")

	_, _, err = execute(t, "run", "--store", "postgres", path)
	assert.ErrorContains(t, err, "unknown store backend")

	_, _, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	path := writeFile(t, "family.yaml", familyProgram)

	stdout, _, err := execute(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "union ancestor")
	assert.Contains(t, stdout, "get_rel parent(X, Z)")

	stdout, _, err = execute(t, "graph", "--rules", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ancestor(X, Y) <- parent(X, Y)")
}

func TestFunctions(t *testing.T) {
	stdout, _, err := execute(t, "functions")
	require.NoError(t, err)
	assert.Equal(t, "rgx(string, string) -> span...\nrgx_string(string, string) -> string...\n", stdout)
}
