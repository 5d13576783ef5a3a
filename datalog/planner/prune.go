package planner

// PruneProjectNodes splices out every PROJECT node that keeps a single
// variable of a child producing exactly that one column, since such a
// projection is the identity. Returns the number of nodes removed.
func (g *TermGraph) PruneProjectNodes() int {
	pruned := 0
	for id, node := range g.nodes {
		if node == nil || !g.redundantProject(NodeID(id)) {
			continue
		}
		child := g.nodes[node.Children[0]]
		if node.Parent != NoNode {
			parent := g.nodes[node.Parent]
			for i, c := range parent.Children {
				if c == node.ID {
					parent.Children[i] = child.ID
				}
			}
		}
		child.Parent = node.Parent
		g.nodes[id] = nil
		pruned++
	}
	return pruned
}

func (g *TermGraph) redundantProject(id NodeID) bool {
	node := g.nodes[id]
	op, ok := node.Op.(ProjectOp)
	if !ok || len(op.Vars) != 1 || len(node.Children) != 1 {
		return false
	}
	cols := g.Columns(node.Children[0])
	return len(cols) == 1 && cols[0].IsVar() && cols[0].VarName() == op.Vars[0]
}
