package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wbrown/spanlog/datalog"
)

func TestRemoveUselessRelations(t *testing.T) {
	tests := []struct {
		name string
		rule datalog.Rule
		want string
	}{
		{
			name: "disconnected relation dropped",
			rule: datalog.NewRule(rel("A", X), rel("B", X), rel("C", Y)),
			want: "A(X) <- B(X)",
		},
		{
			name: "transitively connected relation kept",
			rule: datalog.NewRule(rel("A", X), rel("B", X, Y), rel("C", Y)),
			want: "A(X) <- B(X, Y), C(Y)",
		},
		{
			name: "connection discovered in a later pass",
			rule: datalog.NewRule(rel("A", X), rel("D", Z), rel("C", Y, Z), rel("B", X, Y)),
			want: "A(X) <- D(Z), C(Y, Z), B(X, Y)",
		},
		{
			name: "guard without variables kept",
			rule: datalog.NewRule(rel("A", X), rel("B", X), rel("flag", datalog.Str("on"))),
			want: `A(X) <- B(X), flag("on")`,
		},
		{
			name: "ie inputs become relevant",
			rule: datalog.NewRule(rel("A", X),
				rel("text", S),
				ie("rgx", []datalog.Term{S, datalog.Str("a")}, []datalog.Term{X}),
				rel("other", Y)),
			want: `A(X) <- text(S), rgx(S, "a") -> (X)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveUselessRelations(tt.rule)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRemoveUselessRelationsDoesNotMutateInput(t *testing.T) {
	rule := datalog.NewRule(rel("A", X), rel("B", X), rel("C", Y))
	_ = RemoveUselessRelations(rule)
	assert.Len(t, rule.Body, 2)
}
