package annotations

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) }).WithSession("s-1")
	require.True(t, c.Enabled())

	c.AddTiming(QueryInvoked, time.Now(), map[string]interface{}{"query": "a(X)"})
	c.Add(Event{Name: RuleAdded})

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "s-1", events[0].Session)
	assert.Equal(t, []string{QueryInvoked, RuleAdded}, seen)

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestDisabledCollector(t *testing.T) {
	c := NewCollector(nil)
	assert.False(t, c.Enabled())
	c.AddTiming(QueryInvoked, time.Now(), nil)
	assert.Empty(t, c.Events())
}

func TestOutputFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutputFormatter(&buf)

	tests := []struct {
		event Event
		want  string
	}{
		{
			Event{Name: QueryInvoked, Data: map[string]interface{}{"query": "ancestor(\"a\", Y)"}},
			`Query: ancestor("a", Y)`,
		},
		{
			Event{Name: QueryComplete, Data: map[string]interface{}{"success": true, "relations.count": 1, "tuples.count": 2}},
			"Query done with 1 Relations with 2 Tuples total.",
		},
		{
			Event{Name: QueryComplete, Data: map[string]interface{}{"success": false, "error": errors.New("boom")}},
			"Query failed: boom",
		},
		{
			Event{Name: FixpointRound, Data: map[string]interface{}{
				"round": 2, "predicates": []string{"even", "odd"}, "tuples.total": 5, "tuples.new": 0}},
			"Round 2 of [even odd]: 5 Tuples, 0 Tuples new",
		},
		{
			Event{Name: OperatorJoin, Data: map[string]interface{}{
				"inputs": []RelationInfo{
					{Name: "parent", Attrs: []string{"X", "Z"}, TupleCount: 2},
					{Name: "ancestor", Attrs: []string{"Z", "Y"}, TupleCount: 1},
				},
				"result": RelationInfo{Attrs: []string{"X", "Z", "Y"}, TupleCount: 1},
			}},
			"Join(parent([X Z], 2 Tuples) × ancestor([Z Y], 1 Tuples)) → Relation([X Z Y], 1 Tuples)",
		},
		{
			Event{Name: IEComputed, Data: map[string]interface{}{"relation": "rgx(S, \"a\") -> (X)", "input.count": 3, "output.count": 4}},
			`IE(rgx(S, "a") -> (X)) on 3 Inputs → 4 Tuples`,
		},
		{
			Event{Name: RuleRemoved, Data: map[string]interface{}{"rule": "a(X) <- b(X)", "last": true}},
			"- a(X) <- b(X) (last clause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.event.Name, func(t *testing.T) {
			got := f.Format(tt.event)
			assert.True(t, strings.HasPrefix(got, "[0µs] "), got)
			assert.Contains(t, got, tt.want)
		})
	}

	f.Handle(Event{Name: RuleAdded, Data: map[string]interface{}{"rule": "a(X) <- b(X)"}})
	assert.Equal(t, "[0µs] + a(X) <- b(X)\n", buf.String())
}

func TestTruncateQuery(t *testing.T) {
	long := strings.Repeat("x", 100)
	assert.Len(t, truncateQuery(long), 80)
	assert.Equal(t, "a b", truncateQuery("a\n   b"))
}
