// Package planner turns rules into the logical plan the executor walks.
//
// File organization:
//   - planner.go: node kinds, operator payloads and the TermGraph arena
//   - graph.go: adding and removing clauses
//   - prune.go: structural optimizations over the graph
//   - strata.go: predicate dependencies and strongly-connected components
//   - render.go: textual rendering of the graph
//   - safety.go: rule safety and body resolution order
//   - useless.go: useless-relation elimination
//
// Start with TermGraph.AddRule in graph.go to understand plan construction.
package planner

import (
	"github.com/wbrown/spanlog/datalog"
)

// NodeID indexes a node in a TermGraph arena
type NodeID int

// NoNode marks a missing parent or child
const NoNode NodeID = -1

// NodeKind is the closed set of logical operators
type NodeKind uint8

const (
	KindUnion NodeKind = iota
	KindRuleRel
	KindJoin
	KindProject
	KindSelect
	KindGetRel
	KindCalc
)

func (k NodeKind) String() string {
	switch k {
	case KindUnion:
		return "union"
	case KindRuleRel:
		return "rule_rel"
	case KindJoin:
		return "join"
	case KindProject:
		return "project"
	case KindSelect:
		return "select"
	case KindGetRel:
		return "get_rel"
	case KindCalc:
		return "calc"
	default:
		return "unknown"
	}
}

// EvalState tracks whether a clause has been folded into the graph
type EvalState uint8

const (
	NotComputed EvalState = iota
	Visited
)

// Operator is the payload of a node. The concrete type determines the kind.
type Operator interface {
	Kind() NodeKind
	isOperator()
}

// UnionOp combines every clause of one head predicate
type UnionOp struct {
	Head string
}

// RuleRelOp roots one clause. Source is the clause as declared, Rule the
// optimized clause the subtree was built from.
type RuleRelOp struct {
	Source datalog.Rule
	Rule   datalog.Rule
	State  EvalState
}

// JoinOp natural-joins its children on shared free variables
type JoinOp struct{}

// ProjectOp keeps the listed free variables, in order
type ProjectOp struct {
	Vars []string
}

// SelectOp filters its child by the constants and repeated variables of
// the child's atom
type SelectOp struct{}

// GetRelOp reads the current contents of a stored relation
type GetRelOp struct {
	Relation datalog.Relation
}

// CalcOp evaluates an IE relation against its bounding relation
type CalcOp struct {
	IE datalog.IERelation
}

func (UnionOp) Kind() NodeKind   { return KindUnion }
func (RuleRelOp) Kind() NodeKind { return KindRuleRel }
func (JoinOp) Kind() NodeKind    { return KindJoin }
func (ProjectOp) Kind() NodeKind { return KindProject }
func (SelectOp) Kind() NodeKind  { return KindSelect }
func (GetRelOp) Kind() NodeKind  { return KindGetRel }
func (CalcOp) Kind() NodeKind    { return KindCalc }

func (UnionOp) isOperator()   {}
func (RuleRelOp) isOperator() {}
func (JoinOp) isOperator()    {}
func (ProjectOp) isOperator() {}
func (SelectOp) isOperator()  {}
func (GetRelOp) isOperator()  {}
func (CalcOp) isOperator()    {}

// Node is one operator in the graph
type Node struct {
	ID       NodeID
	Op       Operator
	Parent   NodeID
	Children []NodeID
}

// Kind returns the operator kind
func (n *Node) Kind() NodeKind { return n.Op.Kind() }

// TermGraph holds the logical plan of every defined rule: one UNION node
// per head predicate, with one RULE_REL subtree per clause. Nodes live in
// an arena and refer to each other by index; recursive predicates are
// expressed by GET_REL leaves naming a head, never by cyclic edges.
type TermGraph struct {
	nodes  []*Node // nil entries are removed nodes
	unions map[string]NodeID
}

// NewTermGraph creates an empty graph
func NewTermGraph() *TermGraph {
	return &TermGraph{unions: make(map[string]NodeID)}
}

// Node returns the node for id, or nil if it was removed
func (g *TermGraph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the number of live nodes
func (g *TermGraph) Len() int {
	n := 0
	for _, node := range g.nodes {
		if node != nil {
			n++
		}
	}
	return n
}

func (g *TermGraph) newNode(op Operator, parent NodeID) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Op: op, Parent: parent})
	if parent != NoNode {
		p := g.nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Columns returns the column terms the node produces. Constant columns
// survive SELECT and GET_REL; JOIN and PROJECT produce free variables only.
func (g *TermGraph) Columns(id NodeID) []datalog.Term {
	node := g.Node(id)
	if node == nil {
		return nil
	}
	switch op := node.Op.(type) {
	case GetRelOp:
		return op.Relation.Terms
	case CalcOp:
		return CalcColumns(op.IE)
	case SelectOp:
		if len(node.Children) == 1 {
			return g.Columns(node.Children[0])
		}
		return nil
	case ProjectOp:
		return varTerms(op.Vars)
	case JoinOp:
		seen := make(map[string]bool)
		var vars []string
		for _, child := range node.Children {
			for _, t := range g.Columns(child) {
				if t.IsVar() && !seen[t.VarName()] {
					seen[t.VarName()] = true
					vars = append(vars, t.VarName())
				}
			}
		}
		return varTerms(vars)
	case RuleRelOp:
		return op.Rule.Head.Terms
	case UnionOp:
		if clauses := node.Children; len(clauses) > 0 {
			return g.Columns(clauses[0])
		}
	}
	return nil
}

// CalcColumns returns the columns of an evaluated IE relation: its distinct
// input variables followed by its output terms. Keeping the inputs lets
// the joined result pair each output with the input that produced it.
func CalcColumns(ie datalog.IERelation) []datalog.Term {
	cols := varTerms(ie.InputVars())
	return append(cols, ie.Outputs...)
}

func varTerms(vars []string) []datalog.Term {
	terms := make([]datalog.Term, len(vars))
	for i, v := range vars {
		terms[i] = datalog.Var(v)
	}
	return terms
}
