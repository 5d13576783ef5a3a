package planner

import (
	"sort"
)

// Dependencies returns the defined heads that head's clauses read, sorted
func (g *TermGraph) Dependencies(head string) []string {
	union, ok := g.unions[head]
	if !ok {
		return nil
	}
	deps := make(map[string]bool)
	g.walk(union, func(n *Node) {
		if op, ok := n.Op.(GetRelOp); ok && g.HasHead(op.Relation.Name) {
			deps[op.Relation.Name] = true
		}
	})
	out := make([]string, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Relations returns every relation name read by head's clauses, defined
// heads and base relations alike, sorted
func (g *TermGraph) Relations(head string) []string {
	union, ok := g.unions[head]
	if !ok {
		return nil
	}
	names := make(map[string]bool)
	g.walk(union, func(n *Node) {
		if op, ok := n.Op.(GetRelOp); ok {
			names[op.Relation.Name] = true
		}
	})
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *TermGraph) walk(id NodeID, fn func(*Node)) {
	node := g.Node(id)
	if node == nil {
		return
	}
	fn(node)
	for _, child := range node.Children {
		g.walk(child, fn)
	}
}

// Closure returns target and every head it transitively depends on, sorted
func (g *TermGraph) Closure(target string) []string {
	if !g.HasHead(target) {
		return nil
	}
	seen := map[string]bool{target: true}
	stack := []string{target}
	for len(stack) > 0 {
		head := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.Dependencies(head) {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Strata partitions the closure of target into strongly-connected
// components, ordered so that every component comes after the components
// it depends on. Mutually recursive heads share a component.
func (g *TermGraph) Strata(target string) [][]string {
	t := &tarjan{
		graph:   g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, head := range g.Closure(target) {
		if _, visited := t.index[head]; !visited {
			t.connect(head)
		}
	}
	return t.components
}

// IsRecursive reports whether a component feeds back into itself
func (g *TermGraph) IsRecursive(component []string) bool {
	if len(component) > 1 {
		return true
	}
	for _, dep := range g.Dependencies(component[0]) {
		if dep == component[0] {
			return true
		}
	}
	return false
}

// tarjan emits components in reverse topological order of the
// head -> dependency edges, which is dependencies first
type tarjan struct {
	graph      *TermGraph
	counter    int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) connect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph.Dependencies(v) {
		if _, visited := t.index[w]; !visited {
			t.connect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var component []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		component = append(component, w)
		if w == v {
			break
		}
	}
	sort.Strings(component)
	t.components = append(t.components, component)
}
