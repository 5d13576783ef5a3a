// Package program reads YAML program documents: an ordered list of
// statements that declare relations, add and remove facts, define rules
// and ask queries.
//
// Terms are written as YAML scalars:
//
//	X, Name, _tmp   free variable (plain scalar starting with an upper-case letter or _)
//	alice, "X"      string constant (any other plain scalar, or any quoted scalar)
//	42              int constant
//	[0, 5]          span constant, also !span "[0,5)"
//
// Facts and removals never contain variables, so a plain Alice in a fact
// row is the string "Alice".
//
// A relation atom is a single-key mapping, {parent: [X, Y]}. An IE atom
// names its function with the ie key:
//
//	{ie: rgx, inputs: [S, '\w+'], outputs: [X]}
package program

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/wbrown/spanlog/datalog"
)

// Program is a parsed document
type Program struct {
	Name       string      `yaml:"name,omitempty"`
	Statements []Statement `yaml:"statements"`
}

// Statement sets exactly one of its fields
type Statement struct {
	Declare        *Declaration `yaml:"declare,omitempty"`
	DeclareRule    *Declaration `yaml:"declare_rule,omitempty"`
	Facts          *Facts       `yaml:"facts,omitempty"`
	RemoveFacts    *Facts       `yaml:"remove_facts,omitempty"`
	Rule           *Rule        `yaml:"rule,omitempty"`
	RemoveRule     *Rule        `yaml:"remove_rule,omitempty"`
	Query          *Atom        `yaml:"query,omitempty"`
	Export         string       `yaml:"export,omitempty"`
	Clear          string       `yaml:"clear,omitempty"`
	RemoveRelation string       `yaml:"remove_relation,omitempty"`
}

// Statement kinds, as written in documents
const (
	KindDeclare        = "declare"
	KindDeclareRule    = "declare_rule"
	KindFacts          = "facts"
	KindRemoveFacts    = "remove_facts"
	KindRule           = "rule"
	KindRemoveRule     = "remove_rule"
	KindQuery          = "query"
	KindExport         = "export"
	KindClear          = "clear"
	KindRemoveRelation = "remove_relation"
)

// Kind returns the statement's kind, or an error unless exactly one
// field is set
func (s Statement) Kind() (string, error) {
	var kinds []string
	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}
	add(s.Declare != nil, KindDeclare)
	add(s.DeclareRule != nil, KindDeclareRule)
	add(s.Facts != nil, KindFacts)
	add(s.RemoveFacts != nil, KindRemoveFacts)
	add(s.Rule != nil, KindRule)
	add(s.RemoveRule != nil, KindRemoveRule)
	add(s.Query != nil, KindQuery)
	add(s.Export != "", KindExport)
	add(s.Clear != "", KindClear)
	add(s.RemoveRelation != "", KindRemoveRelation)

	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("empty statement")
	case 1:
		return kinds[0], nil
	}
	return "", fmt.Errorf("statement mixes %v", kinds)
}

// Declaration declares a relation schema
type Declaration struct {
	Name   string   `yaml:"name"`
	Schema []string `yaml:"schema"`
}

// RelationDeclaration converts the schema names into data types
func (d Declaration) RelationDeclaration() (datalog.RelationDeclaration, error) {
	schema := make([]datalog.DataType, len(d.Schema))
	for i, name := range d.Schema {
		t, err := datalog.ParseDataType(name)
		if err != nil {
			return datalog.RelationDeclaration{}, fmt.Errorf("relation %s column %d: %w", d.Name, i, err)
		}
		schema[i] = t
	}
	return datalog.RelationDeclaration{Name: d.Name, Schema: schema}, nil
}

// Facts holds constant rows for one relation
type Facts struct {
	Relation string        `yaml:"relation"`
	Rows     []ConstantRow `yaml:"rows"`
}

// Relations returns one fact per row
func (f Facts) Relations() []datalog.Relation {
	out := make([]datalog.Relation, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = datalog.NewRelation(f.Relation, row...)
	}
	return out
}

// ConstantRow is a fact row; every scalar is a constant
type ConstantRow []datalog.Term

func (r *ConstantRow) UnmarshalYAML(node *yaml.Node) error {
	terms, err := decodeTerms(node, false)
	if err != nil {
		return err
	}
	*r = terms
	return nil
}

// Rule is head <- body
type Rule struct {
	Head Atom   `yaml:"head"`
	Body []Atom `yaml:"body"`
}

// Rule converts the document form into an engine rule
func (r Rule) Rule() (datalog.Rule, error) {
	head, ok := r.Head.Atom.(datalog.Relation)
	if !ok {
		return datalog.Rule{}, fmt.Errorf("rule head must be a relation atom, got %v", r.Head.Atom)
	}
	body := make([]datalog.Atom, len(r.Body))
	for i, a := range r.Body {
		body[i] = a.Atom
	}
	return datalog.NewRule(head, body...), nil
}

// Atom wraps a relation or IE atom
type Atom struct {
	datalog.Atom
}

// Relation returns the atom as a relation
func (a Atom) Relation() (datalog.Relation, error) {
	rel, ok := a.Atom.(datalog.Relation)
	if !ok {
		return datalog.Relation{}, fmt.Errorf("expected a relation atom, got %v", a.Atom)
	}
	return rel, nil
}

func (a *Atom) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nodeError(node, "atom must be a mapping")
	}
	if ie := mappingValue(node, "ie"); ie != nil {
		return a.decodeIE(node, ie)
	}
	if len(node.Content) != 2 {
		return nodeError(node, "relation atom must have exactly one key")
	}
	name := node.Content[0].Value
	terms, err := decodeTerms(node.Content[1], true)
	if err != nil {
		return err
	}
	a.Atom = datalog.NewRelation(name, terms...)
	return nil
}

func (a *Atom) decodeIE(node, name *yaml.Node) error {
	var inputs, outputs []datalog.Term
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "ie":
		case "inputs":
			inputs, err = decodeTerms(value, true)
		case "outputs":
			outputs, err = decodeTerms(value, true)
		default:
			err = nodeError(key, "unknown IE atom field %q", key.Value)
		}
		if err != nil {
			return err
		}
	}
	a.Atom = datalog.NewIERelation(name.Value, inputs, outputs)
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func decodeTerms(node *yaml.Node, vars bool) ([]datalog.Term, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nodeError(node, "expected a list of terms")
	}
	terms := make([]datalog.Term, len(node.Content))
	for i, n := range node.Content {
		t, err := decodeTerm(n, vars)
		if err != nil {
			return nil, err
		}
		terms[i] = t
	}
	return terms, nil
}

func decodeTerm(node *yaml.Node, vars bool) (datalog.Term, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) == 2 {
			start, err1 := strconv.ParseInt(node.Content[0].Value, 10, 64)
			end, err2 := strconv.ParseInt(node.Content[1].Value, 10, 64)
			if err1 == nil && err2 == nil {
				return datalog.SpanTerm(start, end), nil
			}
		}
		return datalog.Term{}, nodeError(node, "a span is written [start, end]")
	case yaml.ScalarNode:
	default:
		return datalog.Term{}, nodeError(node, "expected a term")
	}

	switch node.Tag {
	case "!span":
		span, err := datalog.ParseSpan(node.Value)
		if err != nil {
			return datalog.Term{}, nodeError(node, "%v", err)
		}
		return datalog.SpanTerm(span.Start, span.End), nil
	case "!!int":
		i, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return datalog.Term{}, nodeError(node, "%v", err)
		}
		return datalog.Int(i), nil
	case "!!str":
		if vars && node.Style == 0 && isVarName(node.Value) {
			return datalog.Var(node.Value), nil
		}
		return datalog.Str(node.Value), nil
	}
	return datalog.Term{}, nodeError(node, "unsupported term %q (%s)", node.Value, node.Tag)
}

func isVarName(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !(unicode.IsUpper(r) || r == '_') {
		return false
	}
	for _, r := range s[size:] {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

func nodeError(node *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}

// Load reads a program document
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return Parse(data)
}

// Parse decodes a program document, rejecting unknown fields
func Parse(data []byte) (*Program, error) {
	var prog Program
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&prog); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	for i, st := range prog.Statements {
		if _, err := st.Kind(); err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return &prog, nil
}
