package executor

import (
	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
)

// DeclareRelation creates the table of a base relation if it is absent
func (e *Executor) DeclareRelation(decl datalog.RelationDeclaration) error {
	if datalog.IsReservedName(decl.Name) {
		return datalog.Errorf(datalog.SchemaError, decl.Name, "relation names may not start with %q", datalog.ReservedPrefix)
	}
	if err := e.store.CreateTable(decl.Name, decl.Arity()); err != nil {
		return err
	}
	e.logger.Debug("declared relation", zap.String("relation", decl.String()))
	return nil
}

// factTuple converts a fact to a stored tuple; every term must be a constant
func factTuple(fact datalog.Relation) (datalog.Tuple, error) {
	t := make(datalog.Tuple, len(fact.Terms))
	for i, term := range fact.Terms {
		if !term.Type.IsConstant() {
			return nil, datalog.Errorf(datalog.TypeError, fact.Name,
				"fact %s has non-constant term %s", fact, term)
		}
		t[i] = term.Value
	}
	return t, nil
}

func (e *Executor) checkFactTable(fact datalog.Relation) error {
	arity, err := e.store.Arity(fact.Name)
	if err != nil {
		return err
	}
	if arity != len(fact.Terms) {
		return datalog.Errorf(datalog.SchemaError, fact.Name,
			"fact %s has %d terms, relation has arity %d", fact, len(fact.Terms), arity)
	}
	return nil
}

// AddFact inserts a fully constant tuple. It reports whether the tuple was new.
func (e *Executor) AddFact(fact datalog.Relation) (bool, error) {
	n, err := e.AddFacts([]datalog.Relation{fact})
	return n == 1, err
}

// AddFacts validates every fact before inserting any of them and returns
// how many tuples were new
func (e *Executor) AddFacts(facts []datalog.Relation) (int, error) {
	byTable := make(map[string][]datalog.Tuple)
	var order []string
	for _, fact := range facts {
		t, err := factTuple(fact)
		if err != nil {
			return 0, err
		}
		if err := e.checkFactTable(fact); err != nil {
			return 0, err
		}
		if _, seen := byTable[fact.Name]; !seen {
			order = append(order, fact.Name)
		}
		byTable[fact.Name] = append(byTable[fact.Name], t)
	}

	added := 0
	for _, name := range order {
		n, err := e.store.Insert(name, byTable[name])
		if err != nil {
			return added, err
		}
		added += n
	}
	e.logger.Debug("added facts", zap.Int("facts", len(facts)), zap.Int("new", added))
	return added, nil
}

// RemoveFact deletes a fully constant tuple and reports whether it was present
func (e *Executor) RemoveFact(fact datalog.Relation) (bool, error) {
	t, err := factTuple(fact)
	if err != nil {
		return false, err
	}
	if err := e.checkFactTable(fact); err != nil {
		return false, err
	}
	n, err := e.store.Delete(fact.Name, []datalog.Tuple{t})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRelation removes every row of a relation, keeping its table
func (e *Executor) ClearRelation(name string) error {
	return e.store.ClearTable(name)
}

// RemoveRelation drops a relation's table
func (e *Executor) RemoveRelation(name string) error {
	if err := e.store.DropTable(name); err != nil {
		return err
	}
	e.logger.Debug("removed relation", zap.String("relation", name))
	return nil
}

// RemoveRelations drops several tables, stopping at the first failure
func (e *Executor) RemoveRelations(names ...string) error {
	for _, name := range names {
		if err := e.RemoveRelation(name); err != nil {
			return err
		}
	}
	return nil
}

// TableLength returns the number of rows in a relation
func (e *Executor) TableLength(name string) (int, error) {
	return e.store.Len(name)
}

// HasRelation reports whether a table exists for name
func (e *Executor) HasRelation(name string) (bool, error) {
	return e.store.HasTable(name)
}

// Scan returns every row of a relation
func (e *Executor) Scan(name string) ([]datalog.Tuple, error) {
	return e.store.Scan(name)
}
