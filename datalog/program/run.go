package program

import (
	"fmt"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/executor"
	"github.com/wbrown/spanlog/datalog/session"
)

// Output is the result of a query or export statement
type Output struct {
	Statement int // 1-based
	Query     datalog.Query
	Result    *executor.QueryResult
}

// String renders the output as "?- query" followed by the result
func (o Output) String() string {
	return fmt.Sprintf("?- %s\n%s", o.Query, o.Result)
}

// Run executes every statement in order against s and returns the outputs
// of queries and exports. It stops at the first failing statement.
func Run(s *session.Session, prog *Program) ([]Output, error) {
	var outputs []Output
	for i, st := range prog.Statements {
		kind, err := st.Kind()
		if err == nil {
			var out *Output
			out, err = execute(s, st, kind)
			if out != nil {
				out.Statement = i + 1
				outputs = append(outputs, *out)
			}
		}
		if err != nil {
			return outputs, fmt.Errorf("statement %d (%s): %w", i+1, kind, err)
		}
	}
	return outputs, nil
}

func execute(s *session.Session, st Statement, kind string) (*Output, error) {
	switch kind {
	case KindDeclare, KindDeclareRule:
		decl := st.Declare
		declare := s.DeclareRelation
		if kind == KindDeclareRule {
			decl, declare = st.DeclareRule, s.DeclareRule
		}
		rd, err := decl.RelationDeclaration()
		if err != nil {
			return nil, err
		}
		return nil, declare(rd)

	case KindFacts:
		_, err := s.AddFacts(st.Facts.Relations())
		return nil, err

	case KindRemoveFacts:
		for _, fact := range st.RemoveFacts.Relations() {
			if _, err := s.RemoveFact(fact); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case KindRule, KindRemoveRule:
		doc := st.Rule
		apply := s.AddRule
		if kind == KindRemoveRule {
			doc, apply = st.RemoveRule, s.RemoveRule
		}
		rule, err := doc.Rule()
		if err != nil {
			return nil, err
		}
		return nil, apply(rule)

	case KindQuery:
		q, err := st.Query.Relation()
		if err != nil {
			return nil, err
		}
		res, err := s.Query(q)
		if err != nil {
			return nil, err
		}
		return &Output{Query: q, Result: res}, nil

	case KindExport:
		res, err := s.Export(st.Export)
		if err != nil {
			return nil, err
		}
		return &Output{Query: res.Query, Result: res}, nil

	case KindClear:
		return nil, s.ClearRelation(st.Clear)

	case KindRemoveRelation:
		return nil, s.RemoveRelation(st.RemoveRelation)
	}
	return nil, fmt.Errorf("unknown statement kind %q", kind)
}
