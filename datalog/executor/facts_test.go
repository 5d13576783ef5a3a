package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/spanlog/datalog"
)

func TestAddFactIsIdempotent(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "parent", datalog.TypeString, datalog.TypeString)

	added, err := e.AddFact(rel("parent", strs("a", "b")...))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = e.AddFact(rel("parent", strs("a", "b")...))
	require.NoError(t, err)
	assert.False(t, added)

	n, err := e.TableLength("parent")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddFactsValidatesFirst(t *testing.T) {
	e := newTestExecutor(t)
	declare(t, e, "parent", datalog.TypeString, datalog.TypeString)

	_, err := e.AddFacts([]datalog.Relation{
		rel("parent", strs("a", "b")...),
		rel("parent", datalog.Str("b"), X),
	})
	assert.True(t, datalog.IsKind(err, datalog.TypeError))

	_, err = e.AddFacts([]datalog.Relation{
		rel("parent", strs("a", "b")...),
		rel("parent", strs("a")...),
	})
	assert.True(t, datalog.IsKind(err, datalog.SchemaError))

	n, err := e.TableLength("parent")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFactOnUndeclaredRelation(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.AddFact(rel("ghost", strs("a")...))
	assert.True(t, datalog.IsKind(err, datalog.UndeclaredError))
}

func TestRemoveFact(t *testing.T) {
	e := familyExecutor(t)

	removed, err := e.RemoveFact(rel("parent", strs("a", "b")...))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = e.RemoveFact(rel("parent", strs("a", "b")...))
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := e.TableLength("parent")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelationLifecycle(t *testing.T) {
	e := familyExecutor(t)
	declare(t, e, "other", datalog.TypeInt)

	// Declaring again keeps the rows
	declare(t, e, "parent", datalog.TypeString, datalog.TypeString)
	n, err := e.TableLength("parent")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, e.ClearRelation("parent"))
	n, err = e.TableLength("parent")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, e.RemoveRelations("parent", "other"))
	_, err = e.TableLength("parent")
	assert.True(t, datalog.IsKind(err, datalog.UndeclaredError))

	err = e.RemoveRelation("parent")
	assert.True(t, datalog.IsKind(err, datalog.UndeclaredError))
}

func TestReservedRelationName(t *testing.T) {
	e := newTestExecutor(t)
	err := e.DeclareRelation(datalog.RelationDeclaration{
		Name:   datalog.ReservedPrefix + "x",
		Schema: []datalog.DataType{datalog.TypeString},
	})
	assert.True(t, datalog.IsKind(err, datalog.SchemaError))
}
