package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/executor"
)

// Query answers q. Rule relations are evaluated to a fixed point first.
// Result columns are q's free variables in order of first appearance; a
// query without free variables yields a boolean result.
func (s *Session) Query(q datalog.Query) (*executor.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(q)
}

func (s *Session) query(q datalog.Query) (*executor.QueryResult, error) {
	sym, ok := s.symbols.lookup(q.Name)
	if !ok {
		return nil, datalog.Errorf(datalog.UndeclaredError, q.Name, "relation is not declared")
	}
	if err := noBoundVars(q.Name, q.Terms); err != nil {
		return nil, err
	}
	if err := checkTerms(q, sym.schema); err != nil {
		return nil, err
	}

	res, err := s.exec.EvaluateQuery(s.context(), s.graph, q)
	if err != nil {
		s.logger.Debug("query failed", zap.Stringer("query", q), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("query", zap.Stringer("query", q), zap.Int("tuples", res.Len()))
	return res, nil
}

// Export returns every tuple of a relation, as the query name(X0, ..., Xn)
func (s *Session) Export(name string) (*executor.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols.lookup(name)
	if !ok {
		return nil, datalog.Errorf(datalog.UndeclaredError, name, "relation is not declared")
	}
	terms := make([]datalog.Term, len(sym.schema))
	for i := range terms {
		terms[i] = datalog.Var(fmt.Sprintf("X%d", i))
	}
	return s.query(datalog.NewRelation(name, terms...))
}

// ComputeIERelation evaluates an IE relation against a bounding relation,
// or against its constant inputs when bounding is nil, and returns the
// rows it produced. Columns are the IE relation's distinct input variables
// followed by its outputs.
func (s *Session) ComputeIERelation(rel datalog.IERelation, bounding *datalog.Relation) ([]datalog.Tuple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bounding != nil {
		sym, ok := s.symbols.lookup(bounding.Name)
		if !ok {
			return nil, datalog.Errorf(datalog.UndeclaredError, bounding.Name, "relation is not declared")
		}
		if err := checkTerms(*bounding, sym.schema); err != nil {
			return nil, err
		}
		if sym.rule {
			if err := s.exec.Evaluate(s.context(), s.graph, bounding.Name); err != nil {
				return nil, err
			}
		}
	}

	ctx := s.context()
	out, err := s.exec.ComputeIE(ctx, rel, bounding)
	if err != nil {
		_ = s.exec.DropTemporaryTables()
		return nil, err
	}
	rows, err := s.exec.Scan(out.Name)
	if dropErr := s.exec.DropTemporaryTables(); err == nil {
		err = dropErr
	}
	return rows, err
}
