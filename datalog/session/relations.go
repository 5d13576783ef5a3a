package session

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
)

// DeclareRelation declares a base relation. Declaring a name that already
// exists, with any schema, is an error.
func (s *Session) DeclareRelation(decl datalog.RelationDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateRelationName(decl.Name); err != nil {
		return err
	}
	if err := validateSchema(decl); err != nil {
		return err
	}
	if _, ok := s.functions.Lookup(decl.Name); ok {
		return datalog.Errorf(datalog.SchemaError, decl.Name, "name is taken by an IE function")
	}
	if err := s.symbols.declareBase(decl); err != nil {
		return err
	}
	if err := s.exec.DeclareRelation(decl); err != nil {
		s.symbols.remove(decl.Name)
		return err
	}
	s.logger.Debug("declared relation", zap.Stringer("declaration", decl))
	return nil
}

// DeclareRule declares the schema of a rule relation before its clauses,
// so that mutually recursive rules can refer to each other
func (s *Session) DeclareRule(decl datalog.RelationDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateRelationName(decl.Name); err != nil {
		return err
	}
	if err := validateSchema(decl); err != nil {
		return err
	}
	schema, err := s.symbols.mergeRuleSchema(decl.Name, decl.Schema)
	if err != nil {
		return err
	}
	if err := s.exec.DeclareRelation(decl); err != nil {
		return err
	}
	s.symbols.setRule(decl.Name, schema)
	return nil
}

func validateRelationName(name string) error {
	if name == "" {
		return datalog.Errorf(datalog.SchemaError, name, "relation name is empty")
	}
	if datalog.IsReservedName(name) {
		return datalog.Errorf(datalog.SchemaError, name, "relation names may not start with %q", datalog.ReservedPrefix)
	}
	return nil
}

func validateSchema(decl datalog.RelationDeclaration) error {
	for i, t := range decl.Schema {
		if !t.IsConstant() {
			return datalog.Errorf(datalog.SchemaError, decl.Name, "column %d has non-value type %s", i, t)
		}
	}
	return nil
}

// baseSymbol returns the schema of a declared base relation
func (s *Session) baseSymbol(name string) (*symbol, error) {
	sym, ok := s.symbols.lookup(name)
	if !ok {
		return nil, datalog.Errorf(datalog.UndeclaredError, name, "relation is not declared")
	}
	if sym.rule {
		return nil, datalog.Errorf(datalog.SchemaError, name, "facts cannot be added to or removed from a rule relation")
	}
	return sym, nil
}

func (s *Session) checkFact(fact datalog.Relation) error {
	sym, err := s.baseSymbol(fact.Name)
	if err != nil {
		return err
	}
	for _, t := range fact.Terms {
		if !t.Type.IsConstant() {
			return datalog.Errorf(datalog.TypeError, fact.Name, "fact %s has non-constant term %s", fact, t)
		}
	}
	return checkTerms(fact, sym.schema)
}

// AddFact inserts a fact into a base relation. Adding a fact that is
// already present changes nothing.
func (s *Session) AddFact(fact datalog.Relation) error {
	_, err := s.AddFacts([]datalog.Relation{fact})
	return err
}

// AddFacts type-checks every fact before inserting any and returns how
// many were new
func (s *Session) AddFacts(facts []datalog.Relation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fact := range facts {
		if err := s.checkFact(fact); err != nil {
			return 0, err
		}
	}
	return s.exec.AddFacts(facts)
}

// RemoveFact deletes a fact from a base relation and reports whether it
// was present
func (s *Session) RemoveFact(fact datalog.Relation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFact(fact); err != nil {
		return false, err
	}
	return s.exec.RemoveFact(fact)
}

// ClearRelation removes every fact of a base relation
func (s *Session) ClearRelation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.baseSymbol(name); err != nil {
		return err
	}
	return s.exec.ClearRelation(name)
}

// RemoveRelation forgets a relation and drops its table. Removing a rule
// relation removes all of its clauses.
func (s *Session) RemoveRelation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeRelation(name)
}

// RemoveRelations removes several relations, stopping at the first failure
func (s *Session) RemoveRelations(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if err := s.removeRelation(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) removeRelation(name string) error {
	sym, ok := s.symbols.lookup(name)
	if !ok {
		return datalog.Errorf(datalog.UndeclaredError, name, "relation is not declared")
	}
	if sym.rule {
		s.graph.RemoveRulesWithHead(name)
	}
	s.symbols.remove(name)
	if err := s.exec.RemoveRelation(name); err != nil && !datalog.IsKind(err, datalog.UndeclaredError) {
		return err
	}
	s.logger.Debug("removed relation", zap.String("relation", name), zap.Bool("rule", sym.rule))
	return nil
}

// TableLength returns the number of rows of a relation. Rule relations are
// evaluated first.
func (s *Session) TableLength(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols.lookup(name)
	if !ok {
		return 0, datalog.Errorf(datalog.UndeclaredError, name, "relation is not declared")
	}
	if sym.rule {
		if err := s.exec.Evaluate(s.context(), s.graph, name); err != nil {
			return 0, err
		}
	}
	return s.exec.TableLength(name)
}

// Relations returns the declared base relations, sorted by name
func (s *Session) Relations() []datalog.RelationDeclaration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbols.declarations(false)
}

// RuleRelations returns the rule relations and their schemas, sorted by name
func (s *Session) RuleRelations() []datalog.RelationDeclaration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbols.declarations(true)
}
