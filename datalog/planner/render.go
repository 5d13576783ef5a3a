package planner

import (
	"fmt"
	"strings"
)

// String renders every head's subtree, heads sorted, two spaces per level
func (g *TermGraph) String() string {
	var sb strings.Builder
	for _, head := range g.Heads() {
		g.render(&sb, g.unions[head], 0)
	}
	return sb.String()
}

// Describe renders a single node without its children
func (g *TermGraph) Describe(id NodeID) string {
	node := g.Node(id)
	if node == nil {
		return ""
	}
	switch op := node.Op.(type) {
	case UnionOp:
		return "union " + op.Head
	case RuleRelOp:
		return "rule_rel " + op.Source.String()
	case ProjectOp:
		return fmt.Sprintf("project [%s]", strings.Join(op.Vars, ", "))
	case GetRelOp:
		return "get_rel " + op.Relation.String()
	case CalcOp:
		return "calc " + op.IE.String()
	default:
		return node.Kind().String()
	}
}

func (g *TermGraph) render(sb *strings.Builder, id NodeID, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(g.Describe(id))
	sb.WriteByte('\n')
	for _, child := range g.nodes[id].Children {
		g.render(sb, child, depth+1)
	}
}
