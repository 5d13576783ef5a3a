package session

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/planner"
)

// AddRule validates a clause and folds it into the term graph. The rule's
// head relation is created on first use; later clauses for the same head
// must agree with its schema. Adding a clause that already exists changes
// nothing. A rejected rule leaves the session untouched.
func (s *Session) AddRule(rule datalog.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.checkRule(rule)
	if err != nil {
		return err
	}
	schema, err = s.symbols.mergeRuleSchema(rule.Head.Name, schema)
	if err != nil {
		return err
	}

	optimized := rule
	if s.options.RemoveUselessRelations {
		optimized = planner.RemoveUselessRelations(rule)
	}
	if _, added := s.graph.AddRule(rule, optimized); !added {
		return nil
	}
	if s.options.PruneProjectNodes {
		s.graph.PruneProjectNodes()
	}
	s.symbols.setRule(rule.Head.Name, schema)

	s.context().RuleAdded(rule.String())
	s.logger.Debug("added rule",
		zap.Stringer("rule", rule),
		zap.Int("body", len(rule.Body)),
		zap.Int("optimized_body", len(optimized.Body)),
	)
	return nil
}

// checkRule validates a rule against the symbol table and infers the
// schema of its head
func (s *Session) checkRule(rule datalog.Rule) ([]datalog.DataType, error) {
	head := rule.Head
	if err := validateRelationName(head.Name); err != nil {
		return nil, err
	}
	if _, ok := s.functions.Lookup(head.Name); ok {
		return nil, datalog.Errorf(datalog.SchemaError, head.Name, "name is taken by an IE function")
	}
	for _, t := range head.Terms {
		if !t.IsVar() {
			return nil, datalog.Errorf(datalog.SchemaError, head.Name,
				"rule head %s may only contain free variables, got %s", head, t)
		}
	}
	if len(rule.Body) == 0 {
		return nil, datalog.Errorf(datalog.SchemaError, head.Name, "rule %s has an empty body", rule)
	}

	types := newVarTypes(head.Name)
	for _, atom := range rule.Body {
		var err error
		switch a := atom.(type) {
		case datalog.Relation:
			err = s.checkBodyRelation(rule, a, types)
		case datalog.IERelation:
			err = s.checkBodyIE(a, types)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := planner.CheckSafety(rule); err != nil {
		return nil, err
	}

	schema := make([]datalog.DataType, len(head.Terms))
	for i, t := range head.Terms {
		schema[i] = types.get(t.VarName())
	}
	return schema, nil
}

func (s *Session) checkBodyRelation(rule datalog.Rule, rel datalog.Relation, types *varTypes) error {
	if err := noBoundVars(rel.Name, rel.Terms); err != nil {
		return err
	}

	var schema []datalog.DataType
	if sym, ok := s.symbols.lookup(rel.Name); ok {
		schema = sym.schema
	} else if rel.Name == rule.Head.Name {
		// First clause of a recursive rule: only the arity is known
		schema = make([]datalog.DataType, rule.Head.Arity())
		for i := range schema {
			schema[i] = unknownType
		}
	} else {
		return datalog.Errorf(datalog.UndeclaredError, rel.Name, "relation %s is not declared", rel)
	}

	if err := checkTerms(rel, schema); err != nil {
		return err
	}
	for i, t := range rel.Terms {
		if t.IsVar() {
			if err := types.set(t.VarName(), schema[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) checkBodyIE(rel datalog.IERelation, types *varTypes) error {
	fn, ok := s.functions.Lookup(rel.Name)
	if !ok {
		return datalog.Errorf(datalog.SchemaError, rel.Name, "IE function is not registered")
	}
	if err := noBoundVars(rel.Name, rel.Inputs); err != nil {
		return err
	}
	if err := noBoundVars(rel.Name, rel.Outputs); err != nil {
		return err
	}

	inputs := fn.InputSchema
	if inputs == nil {
		inputs = unknownSchema(len(rel.Inputs))
	}
	outputs := fn.OutputTypes(len(rel.Outputs))
	check := func(terms []datalog.Term, schema []datalog.DataType, what string) error {
		if len(terms) != len(schema) {
			return datalog.Errorf(datalog.SchemaError, rel.Name,
				"%s passes %d %s, function %s takes %d", rel, len(terms), what, fn.Name, len(schema))
		}
		for i, t := range terms {
			switch {
			case t.IsVar():
				if err := types.set(t.VarName(), schema[i]); err != nil {
					return err
				}
			case schema[i] != unknownType && t.Type != schema[i]:
				return datalog.Errorf(datalog.TypeError, rel.Name,
					"%s: %s %d expects %s, got %s", rel, what, i, schema[i], t)
			}
		}
		return nil
	}
	if err := check(rel.Inputs, inputs, "inputs"); err != nil {
		return err
	}
	return check(rel.Outputs, outputs, "outputs")
}

func noBoundVars(name string, terms []datalog.Term) error {
	for _, t := range terms {
		if t.Type == datalog.TypeVar {
			return datalog.Errorf(datalog.SchemaError, name, "unresolved variable %s", t)
		}
	}
	return nil
}

func unknownSchema(n int) []datalog.DataType {
	schema := make([]datalog.DataType, n)
	for i := range schema {
		schema[i] = unknownType
	}
	return schema
}

// varTypes accumulates the type of every variable in a rule body
type varTypes struct {
	rule  string
	types map[string]datalog.DataType
}

func newVarTypes(rule string) *varTypes {
	return &varTypes{rule: rule, types: make(map[string]datalog.DataType)}
}

func (v *varTypes) set(name string, t datalog.DataType) error {
	if t == unknownType {
		return nil
	}
	if have, ok := v.types[name]; ok && have != t {
		return datalog.Errorf(datalog.TypeError, v.rule,
			"variable %s is used both as %s and as %s", name, have, t)
	}
	v.types[name] = t
	return nil
}

func (v *varTypes) get(name string) datalog.DataType {
	if t, ok := v.types[name]; ok {
		return t
	}
	return unknownType
}

// RemoveRule removes one clause. Removing the last clause of a relation
// removes the relation and its table.
func (s *Session) RemoveRule(rule datalog.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, last := s.graph.RemoveRule(rule)
	if !removed {
		return datalog.Errorf(datalog.UndeclaredError, rule.Head.Name, "rule %s does not exist", rule)
	}
	if last {
		s.dropRuleRelation(rule.Head.Name)
	}
	s.context().RuleRemoved(rule.String(), last)
	s.logger.Debug("removed rule", zap.Stringer("rule", rule), zap.Bool("last", last))
	return nil
}

// RemoveRulesWithHead removes every clause of head along with its relation
func (s *Session) RemoveRulesWithHead(head string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sym, ok := s.symbols.lookup(head); !ok || !sym.rule {
		return datalog.Errorf(datalog.UndeclaredError, head, "no rule relation named %s", head)
	}
	n := s.graph.RemoveRulesWithHead(head)
	s.dropRuleRelation(head)
	s.logger.Debug("removed rules", zap.String("head", head), zap.Int("clauses", n))
	return nil
}

// RemoveAllRules removes every rule and rule relation
func (s *Session) RemoveAllRules() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, decl := range s.symbols.declarations(true) {
		s.dropRuleRelation(decl.Name)
	}
	s.graph.RemoveAllRules()
	s.logger.Debug("removed all rules")
}

func (s *Session) dropRuleRelation(name string) {
	s.symbols.remove(name)
	if err := s.exec.RemoveRelation(name); err != nil && !datalog.IsKind(err, datalog.UndeclaredError) {
		s.logger.Warn("failed to drop rule table", zap.String("relation", name), zap.Error(err))
	}
}

// Rules returns the clauses of head as declared, or of every head when
// head is empty
func (s *Session) Rules(head string) []datalog.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	if head != "" {
		return s.graph.Rules(head)
	}
	var rules []datalog.Rule
	for _, h := range s.graph.Heads() {
		rules = append(rules, s.graph.Rules(h)...)
	}
	return rules
}
