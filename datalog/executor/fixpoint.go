package executor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/planner"
)

// Evaluate brings the table of target, and of every head it transitively
// reads, to a fixed point. Head tables are recomputed from scratch so that
// removed facts are reflected. A target with no clauses is a no-op.
//
// The heads are evaluated one strongly-connected component at a time,
// dependencies first. Every head of a recursive component is re-evaluated
// each round until the component's total row count stops growing.
func (e *Executor) Evaluate(ctx Context, graph *planner.TermGraph, target string) error {
	if graph == nil || !graph.HasHead(target) {
		return nil
	}

	for _, head := range graph.Closure(target) {
		rules := graph.Rules(head)
		if err := e.store.CreateTable(head, rules[0].Head.Arity()); err != nil {
			return err
		}
		if err := e.store.ClearTable(head); err != nil {
			return err
		}
	}

	for _, component := range graph.Strata(target) {
		component := component
		recursive := graph.IsRecursive(component)
		err := ctx.EvaluateComponent(component, recursive, func() error {
			return e.evaluateComponent(ctx, graph, component, recursive)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) evaluateComponent(ctx Context, graph *planner.TermGraph, component []string, recursive bool) error {
	total, err := e.componentSize(component)
	if err != nil {
		return err
	}

	for round := 1; ; round++ {
		if limit := e.options.MaxIterations; limit > 0 && round > limit {
			return datalog.Errorf(datalog.ExecutionError, component[0],
				"no fixed point for %v after %d iterations", component, limit)
		}

		start := time.Now()
		for _, head := range component {
			if err := e.evaluateHead(ctx, graph, head); err != nil {
				_ = e.DropTemporaryTables()
				return err
			}
		}
		if err := e.DropTemporaryTables(); err != nil {
			return err
		}

		after, err := e.componentSize(component)
		if err != nil {
			return err
		}
		ctx.FixpointRound(start, round, component, after, after-total)
		e.logger.Debug("fixpoint round",
			zap.Strings("predicates", component),
			zap.Int("round", round),
			zap.Int("tuples", after),
			zap.Int("new", after-total),
		)

		if !recursive || after == total {
			return nil
		}
		total = after
	}
}

func (e *Executor) componentSize(component []string) (int, error) {
	total := 0
	for _, head := range component {
		n, err := e.store.Len(head)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// evaluateHead evaluates every clause of head and copies their union into
// the head's table
func (e *Executor) evaluateHead(ctx Context, graph *planner.TermGraph, head string) error {
	clauses := graph.Clauses(head)
	results := make([]datalog.Relation, len(clauses))

	if e.options.ParallelClauses && len(clauses) > 1 {
		inputs := make([]interface{}, len(clauses))
		for i, id := range clauses {
			inputs[i] = id
		}
		out, err := e.pool.ExecuteParallel(ctx, inputs, func(ctx Context, in interface{}) (interface{}, error) {
			return e.evaluateClause(ctx, graph, in.(planner.NodeID))
		})
		if err != nil {
			return err
		}
		for i, r := range out {
			results[i] = r.(datalog.Relation)
		}
	} else {
		for i, id := range clauses {
			rel, err := e.evaluateClause(ctx, graph, id)
			if err != nil {
				return err
			}
			results[i] = rel
		}
	}

	union, err := e.Union(ctx, results)
	if err != nil {
		return err
	}
	_, err = e.Copy(ctx, union, head)
	return err
}

// evaluateClause returns the rows of one clause with columns in head order,
// relabeled _0.._n so that the clauses of a head can be united
func (e *Executor) evaluateClause(ctx Context, graph *planner.TermGraph, id planner.NodeID) (datalog.Relation, error) {
	node := graph.Node(id)
	op, ok := node.Op.(planner.RuleRelOp)
	if !ok || len(node.Children) != 1 {
		return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "", "node %d is not a clause", id)
	}

	rel, err := e.evalNode(ctx, graph, node.Children[0], nil)
	if err != nil {
		return datalog.Relation{}, err
	}

	head := op.Rule.Head
	vars := make([]string, len(head.Terms))
	for i, t := range head.Terms {
		vars[i] = t.VarName()
	}
	if !sameVarColumns(rel, head) {
		if rel, err = e.Project(ctx, rel, vars); err != nil {
			return datalog.Relation{}, err
		}
	}
	return datalog.Relation{Name: rel.Name, Terms: canonicalTerms(len(vars))}, nil
}

// evalNode evaluates the subtree at id. bounding is the relation joined so
// far by an enclosing JOIN, which supplies the inputs of IE relations.
func (e *Executor) evalNode(ctx Context, graph *planner.TermGraph, id planner.NodeID, bounding *datalog.Relation) (datalog.Relation, error) {
	node := graph.Node(id)
	if node == nil {
		return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "", "node %d does not exist", id)
	}

	switch op := node.Op.(type) {
	case planner.GetRelOp:
		arity, err := e.store.Arity(op.Relation.Name)
		if err != nil {
			return datalog.Relation{}, err
		}
		if arity != op.Relation.Arity() {
			return datalog.Relation{}, datalog.Errorf(datalog.SchemaError, op.Relation.Name,
				"%s has %d terms, relation has arity %d", op.Relation, op.Relation.Arity(), arity)
		}
		return op.Relation, nil

	case planner.CalcOp:
		if len(op.IE.InputVars()) == 0 {
			bounding = nil
		}
		return e.ComputeIE(ctx, op.IE, bounding)

	case planner.SelectOp:
		child, err := e.evalNode(ctx, graph, node.Children[0], bounding)
		if err != nil {
			return datalog.Relation{}, err
		}
		return e.Select(ctx, child, Conditions(child))

	case planner.ProjectOp:
		child, err := e.evalNode(ctx, graph, node.Children[0], bounding)
		if err != nil {
			return datalog.Relation{}, err
		}
		return e.Project(ctx, child, op.Vars)

	case planner.JoinOp:
		var acc *datalog.Relation
		for _, childID := range node.Children {
			child, err := e.evalNode(ctx, graph, childID, acc)
			if err != nil {
				return datalog.Relation{}, err
			}
			if acc == nil {
				acc = &child
				continue
			}
			joined, err := e.Join(ctx, []datalog.Relation{*acc, child})
			if err != nil {
				return datalog.Relation{}, err
			}
			acc = &joined
		}
		if acc == nil {
			return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "", "join node %d has no children", id)
		}
		return *acc, nil
	}
	return datalog.Relation{}, datalog.Errorf(datalog.StructuralError, "",
		"unexpected %s node %d below a clause", node.Kind(), id)
}

func canonicalTerms(n int) []datalog.Term {
	terms := make([]datalog.Term, n)
	for i := range terms {
		terms[i] = datalog.Var(fmt.Sprintf("_%d", i))
	}
	return terms
}
