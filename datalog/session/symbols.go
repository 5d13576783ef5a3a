package session

import (
	"sort"

	"github.com/wbrown/spanlog/datalog"
)

// unknownType marks a rule column whose type no clause has determined yet,
// e.g. a column bound only through the rule's own recursive reference
const unknownType datalog.DataType = 255

// symbol is the symbol table entry of a relation
type symbol struct {
	schema []datalog.DataType
	rule   bool
}

// symbolTable tracks relation schemas and which relations are rules.
// IE functions live in the session's registry.
type symbolTable struct {
	relations map[string]*symbol
}

func newSymbolTable() *symbolTable {
	return &symbolTable{relations: make(map[string]*symbol)}
}

func (st *symbolTable) lookup(name string) (*symbol, bool) {
	sym, ok := st.relations[name]
	return sym, ok
}

// declareBase adds a base relation; any existing entry is an error
func (st *symbolTable) declareBase(decl datalog.RelationDeclaration) error {
	if sym, ok := st.relations[decl.Name]; ok {
		if sym.rule {
			return datalog.Errorf(datalog.SchemaError, decl.Name, "relation is already defined by rules")
		}
		return datalog.Errorf(datalog.SchemaError, decl.Name, "relation already has schema %v", sym.schema)
	}
	st.relations[decl.Name] = &symbol{schema: append([]datalog.DataType(nil), decl.Schema...)}
	return nil
}

// mergeRuleSchema checks schema against the existing rule schema of name
// and returns the combined schema, filling columns that were unknown
func (st *symbolTable) mergeRuleSchema(name string, schema []datalog.DataType) ([]datalog.DataType, error) {
	sym, ok := st.relations[name]
	if !ok {
		return schema, nil
	}
	if !sym.rule {
		return nil, datalog.Errorf(datalog.SchemaError, name, "base relation cannot be the head of a rule")
	}
	if len(sym.schema) != len(schema) {
		return nil, datalog.Errorf(datalog.SchemaError, name,
			"rule head has arity %d, relation has arity %d", len(schema), len(sym.schema))
	}
	merged := make([]datalog.DataType, len(schema))
	for i := range schema {
		have, want := sym.schema[i], schema[i]
		switch {
		case have == unknownType:
			merged[i] = want
		case want == unknownType || want == have:
			merged[i] = have
		default:
			return nil, datalog.Errorf(datalog.SchemaError, name,
				"relation already has a different schema: column %d is %s, rule gives %s", i, have, want)
		}
	}
	return merged, nil
}

func (st *symbolTable) setRule(name string, schema []datalog.DataType) {
	st.relations[name] = &symbol{schema: schema, rule: true}
}

func (st *symbolTable) remove(name string) {
	delete(st.relations, name)
}

// declarations lists every relation, sorted by name
func (st *symbolTable) declarations(rules bool) []datalog.RelationDeclaration {
	var decls []datalog.RelationDeclaration
	for name, sym := range st.relations {
		if sym.rule == rules {
			decls = append(decls, datalog.RelationDeclaration{Name: name, Schema: sym.schema})
		}
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// checkTerms verifies constants in terms against schema. Unknown columns
// and variables accept anything.
func checkTerms(rel datalog.Relation, schema []datalog.DataType) error {
	if len(rel.Terms) != len(schema) {
		return datalog.Errorf(datalog.SchemaError, rel.Name,
			"%s has %d terms, relation has arity %d", rel, len(rel.Terms), len(schema))
	}
	for i, t := range rel.Terms {
		if !t.Type.IsConstant() || schema[i] == unknownType {
			continue
		}
		if t.Type != schema[i] {
			return datalog.Errorf(datalog.TypeError, rel.Name,
				"%s: column %d expects %s, got %s", rel, i, schema[i], t)
		}
	}
	return nil
}
