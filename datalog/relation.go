package datalog

import (
	"fmt"
	"strings"
)

// ReservedPrefix starts every generated table name. User relations may not use it.
const ReservedPrefix = "__spanlog__"

// IsReservedName reports whether name belongs to the engine's generated namespace
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// Atom is one literal of a rule body: a Relation or an IERelation
type Atom interface {
	AtomName() string
	// InputVars are the free variables that must be bound before the atom can be evaluated
	InputVars() []string
	// OutputVars are the free variables the atom binds
	OutputVars() []string
	String() string
	isAtom()
}

// Relation is a named predicate applied to terms
type Relation struct {
	Name  string
	Terms []Term
}

// NewRelation builds a relation
func NewRelation(name string, terms ...Term) Relation {
	return Relation{Name: name, Terms: terms}
}

func (r Relation) isAtom()          {}
func (r Relation) AtomName() string { return r.Name }
func (r Relation) Arity() int       { return len(r.Terms) }

// Types returns the term types by position
func (r Relation) Types() []DataType {
	return termTypes(r.Terms)
}

// FreeVars returns the distinct free variables in order of first appearance
func (r Relation) FreeVars() []string {
	return freeVars(r.Terms)
}

func (r Relation) InputVars() []string  { return nil }
func (r Relation) OutputVars() []string { return r.FreeVars() }

// Equal reports equal names, types and terms
func (r Relation) Equal(other Relation) bool {
	return r.Name == other.Name && termsEqual(r.Terms, other.Terms)
}

func (r Relation) String() string {
	return r.Name + "(" + joinTerms(r.Terms) + ")"
}

// Query asks for the rows of a relation matching its constants and
// repeated variables; its free variables become the result columns
type Query = Relation

// IERelation is a predicate computed by an IE function: the inputs
// select the function's arguments and the outputs name its result columns
type IERelation struct {
	Name    string
	Inputs  []Term
	Outputs []Term
}

// NewIERelation builds an IE relation
func NewIERelation(name string, inputs, outputs []Term) IERelation {
	return IERelation{Name: name, Inputs: inputs, Outputs: outputs}
}

func (r IERelation) isAtom()                 {}
func (r IERelation) AtomName() string        { return r.Name }
func (r IERelation) InputTypes() []DataType  { return termTypes(r.Inputs) }
func (r IERelation) OutputTypes() []DataType { return termTypes(r.Outputs) }
func (r IERelation) InputVars() []string     { return freeVars(r.Inputs) }
func (r IERelation) OutputVars() []string    { return freeVars(r.Outputs) }

// Equal reports equal names and terms
func (r IERelation) Equal(other IERelation) bool {
	return r.Name == other.Name && termsEqual(r.Inputs, other.Inputs) && termsEqual(r.Outputs, other.Outputs)
}

func (r IERelation) String() string {
	return r.Name + "(" + joinTerms(r.Inputs) + ") -> (" + joinTerms(r.Outputs) + ")"
}

// Rule defines a clause of the head predicate.
// Head terms are free variables only.
type Rule struct {
	Head Relation
	Body []Atom
}

// NewRule builds a rule
func NewRule(head Relation, body ...Atom) Rule {
	return Rule{Head: head, Body: body}
}

// String renders the clause; two clauses are the same iff their strings match
func (r Rule) String() string {
	parts := make([]string, len(r.Body))
	for i, a := range r.Body {
		parts[i] = a.String()
	}
	return r.Head.String() + " <- " + strings.Join(parts, ", ")
}

// Equal compares clauses structurally
func (r Rule) Equal(other Rule) bool {
	return r.String() == other.String()
}

// BodyVars returns every free variable of the body in order of first appearance
func (r Rule) BodyVars() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, a := range r.Body {
		for _, v := range append(a.InputVars(), a.OutputVars()...) {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// RelationDeclaration declares a base predicate's column types
type RelationDeclaration struct {
	Name   string
	Schema []DataType
}

func (d RelationDeclaration) Arity() int { return len(d.Schema) }

func (d RelationDeclaration) String() string {
	parts := make([]string, len(d.Schema))
	for i, t := range d.Schema {
		parts[i] = t.String()
	}
	return fmt.Sprintf("new %s(%s)", d.Name, strings.Join(parts, ", "))
}

// SchemaEqual compares two schemas by position
func SchemaEqual(a, b []DataType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func termTypes(terms []Term) []DataType {
	types := make([]DataType, len(terms))
	for i, t := range terms {
		types[i] = t.Type
	}
	return types
}

func freeVars(terms []Term) []string {
	seen := make(map[string]bool, len(terms))
	var vars []string
	for _, t := range terms {
		if t.Type != TypeFreeVar {
			continue
		}
		name := t.VarName()
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	return vars
}

func termsEqual(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func joinTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
