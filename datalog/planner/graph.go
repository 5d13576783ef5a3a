package planner

import (
	"sort"

	"github.com/wbrown/spanlog/datalog"
)

// AddRule folds a clause into the graph. source is the clause as the user
// declared it and identifies it for removal; rule is the (possibly
// optimized) clause the subtree is built from. Adding a clause that is
// already present is a no-op and returns the existing RULE_REL node.
//
// The subtree is RULE_REL -> PROJECT(head vars) -> JOIN -> leaves, with
// the JOIN omitted for single-atom bodies and a SELECT inserted above
// any leaf carrying constants or repeated variables.
func (g *TermGraph) AddRule(source, rule datalog.Rule) (NodeID, bool) {
	head := rule.Head.Name
	if id, ok := g.findClause(head, source); ok {
		return id, false
	}

	union, ok := g.unions[head]
	if !ok {
		union = g.newNode(UnionOp{Head: head}, NoNode)
		g.unions[head] = union
	}

	ruleID := g.newNode(RuleRelOp{Source: source, Rule: rule, State: NotComputed}, union)
	parent := g.newNode(ProjectOp{Vars: rule.Head.FreeVars()}, ruleID)

	body := ResolutionOrder(rule.Body)
	if len(body) > 1 {
		parent = g.newNode(JoinOp{}, parent)
	}
	for _, atom := range body {
		g.addLeaf(atom, parent)
	}

	node := g.nodes[ruleID]
	op := node.Op.(RuleRelOp)
	op.State = Visited
	node.Op = op
	return ruleID, true
}

func (g *TermGraph) addLeaf(atom datalog.Atom, parent NodeID) {
	var (
		op      Operator
		columns []datalog.Term
	)
	switch a := atom.(type) {
	case datalog.Relation:
		op, columns = GetRelOp{Relation: a}, a.Terms
	case datalog.IERelation:
		op, columns = CalcOp{IE: a}, CalcColumns(a)
	}
	if NeedsSelect(columns) {
		parent = g.newNode(SelectOp{}, parent)
	}
	g.newNode(op, parent)
}

// NeedsSelect reports whether columns carry constants or repeated variables
func NeedsSelect(columns []datalog.Term) bool {
	seen := make(map[string]bool, len(columns))
	for _, t := range columns {
		if !t.IsVar() {
			return true
		}
		if seen[t.VarName()] {
			return true
		}
		seen[t.VarName()] = true
	}
	return false
}

func (g *TermGraph) findClause(head string, source datalog.Rule) (NodeID, bool) {
	union, ok := g.unions[head]
	if !ok {
		return NoNode, false
	}
	key := source.String()
	for _, id := range g.nodes[union].Children {
		if g.nodes[id].Op.(RuleRelOp).Source.String() == key {
			return id, true
		}
	}
	return NoNode, false
}

// RemoveRule removes the clause declared as source. It reports whether the
// clause existed and whether it was the last clause of its head, in which
// case the head's UNION node is removed as well.
func (g *TermGraph) RemoveRule(source datalog.Rule) (removed, last bool) {
	head := source.Head.Name
	id, ok := g.findClause(head, source)
	if !ok {
		return false, false
	}
	union := g.unions[head]
	g.detach(id)
	g.removeSubtree(id)

	if len(g.nodes[union].Children) == 0 {
		g.removeSubtree(union)
		delete(g.unions, head)
		return true, true
	}
	return true, false
}

// RemoveRulesWithHead removes every clause of head and returns how many there were
func (g *TermGraph) RemoveRulesWithHead(head string) int {
	union, ok := g.unions[head]
	if !ok {
		return 0
	}
	n := len(g.nodes[union].Children)
	g.removeSubtree(union)
	delete(g.unions, head)
	return n
}

// RemoveAllRules empties the graph
func (g *TermGraph) RemoveAllRules() {
	g.nodes = nil
	g.unions = make(map[string]NodeID)
}

func (g *TermGraph) detach(id NodeID) {
	node := g.nodes[id]
	if node.Parent == NoNode {
		return
	}
	parent := g.nodes[node.Parent]
	for i, child := range parent.Children {
		if child == id {
			parent.Children = append(parent.Children[:i:i], parent.Children[i+1:]...)
			break
		}
	}
	node.Parent = NoNode
}

func (g *TermGraph) removeSubtree(id NodeID) {
	node := g.nodes[id]
	if node == nil {
		return
	}
	for _, child := range node.Children {
		g.removeSubtree(child)
	}
	g.nodes[id] = nil
}

// HasHead reports whether any clause defines head
func (g *TermGraph) HasHead(head string) bool {
	_, ok := g.unions[head]
	return ok
}

// UnionNode returns the UNION node of head
func (g *TermGraph) UnionNode(head string) (NodeID, bool) {
	id, ok := g.unions[head]
	return id, ok
}

// Heads returns every defined head predicate, sorted
func (g *TermGraph) Heads() []string {
	heads := make([]string, 0, len(g.unions))
	for h := range g.unions {
		heads = append(heads, h)
	}
	sort.Strings(heads)
	return heads
}

// Clauses returns the RULE_REL nodes of head in declaration order
func (g *TermGraph) Clauses(head string) []NodeID {
	union, ok := g.unions[head]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), g.nodes[union].Children...)
}

// Rules returns the clauses of head as declared
func (g *TermGraph) Rules(head string) []datalog.Rule {
	var rules []datalog.Rule
	for _, id := range g.Clauses(head) {
		rules = append(rules, g.nodes[id].Op.(RuleRelOp).Source)
	}
	return rules
}
