package executor

import (
	"time"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/annotations"
)

// Context provides clean annotation points for evaluation tracking.
type Context interface {
	// Query lifecycle
	QueryBegin(query string)
	QueryComplete(relationCount, tupleCount int, err error)

	// Relational operators
	ApplyOperator(event string, inputs []datalog.Relation, fn func() (datalog.Relation, error)) (datalog.Relation, error)

	// IE evaluation; fn also returns the number of input tuples fed to the function
	ComputeIE(rel datalog.IERelation, fn func() (datalog.Relation, int, error)) (datalog.Relation, error)

	// Fixed-point evaluation
	EvaluateComponent(heads []string, recursive bool, fn func() error) error
	FixpointRound(start time.Time, round int, heads []string, total, added int)

	// Term graph mutations
	RuleAdded(rule string)
	RuleRemoved(rule string, last bool)

	// Get underlying collector
	Collector() *annotations.Collector
}

// BaseContext provides a no-op implementation with zero overhead.
type BaseContext struct{}

// NewContext creates an appropriate context based on whether annotations
// are needed. Relation sizes are not reported; use Executor.NewContext for that.
func NewContext(handler annotations.Handler) Context {
	if handler == nil {
		return &BaseContext{}
	}
	return &AnnotatedContext{collector: annotations.NewCollector(handler)}
}

// BaseContext implementations - all are simple pass-throughs

func (c *BaseContext) QueryBegin(query string) {}

func (c *BaseContext) QueryComplete(relationCount, tupleCount int, err error) {}

func (c *BaseContext) ApplyOperator(event string, inputs []datalog.Relation, fn func() (datalog.Relation, error)) (datalog.Relation, error) {
	return fn()
}

func (c *BaseContext) ComputeIE(rel datalog.IERelation, fn func() (datalog.Relation, int, error)) (datalog.Relation, error) {
	result, _, err := fn()
	return result, err
}

func (c *BaseContext) EvaluateComponent(heads []string, recursive bool, fn func() error) error {
	return fn()
}

func (c *BaseContext) FixpointRound(start time.Time, round int, heads []string, total, added int) {}

func (c *BaseContext) RuleAdded(rule string) {}

func (c *BaseContext) RuleRemoved(rule string, last bool) {}

func (c *BaseContext) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext provides full annotation tracking
type AnnotatedContext struct {
	BaseContext
	collector  *annotations.Collector
	size       func(table string) int
	queryStart time.Time
}

func (c *AnnotatedContext) relationInfo(rel datalog.Relation) annotations.RelationInfo {
	info := annotations.RelationInfo{TupleCount: -1}
	if !datalog.IsReservedName(rel.Name) {
		info.Name = rel.Name
	}
	for _, t := range rel.Terms {
		info.Attrs = append(info.Attrs, t.String())
	}
	if c.size != nil {
		info.TupleCount = c.size(rel.Name)
	}
	return info
}

func (c *AnnotatedContext) QueryBegin(query string) {
	c.queryStart = time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.QueryInvoked,
		Start: c.queryStart,
		Data: map[string]interface{}{
			"query": query,
		},
	})
}

func (c *AnnotatedContext) QueryComplete(relationCount, tupleCount int, err error) {
	data := map[string]interface{}{
		"relations.count": relationCount,
		"tuples.count":    tupleCount,
		"success":         err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	c.collector.AddTiming(annotations.QueryComplete, c.queryStart, data)
}

func (c *AnnotatedContext) ApplyOperator(event string, inputs []datalog.Relation, fn func() (datalog.Relation, error)) (datalog.Relation, error) {
	start := time.Now()
	result, err := fn()
	if err != nil {
		c.collector.AddTiming(annotations.ErrorEvaluation, start, map[string]interface{}{
			"operator": event,
			"error":    err.Error(),
		})
		return result, err
	}

	infos := make([]annotations.RelationInfo, len(inputs))
	for i, rel := range inputs {
		infos[i] = c.relationInfo(rel)
	}
	c.collector.AddTiming(event, start, map[string]interface{}{
		"inputs": infos,
		"result": c.relationInfo(result),
	})
	return result, nil
}

func (c *AnnotatedContext) ComputeIE(rel datalog.IERelation, fn func() (datalog.Relation, int, error)) (datalog.Relation, error) {
	start := time.Now()
	result, inputs, err := fn()
	data := map[string]interface{}{
		"relation":    rel.String(),
		"function":    rel.Name,
		"input.count": inputs,
		"success":     err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
		c.collector.AddTiming(annotations.ErrorEvaluation, start, data)
		return result, err
	}
	data["output.count"] = c.relationInfo(result).TupleCount
	c.collector.AddTiming(annotations.IEComputed, start, data)
	return result, nil
}

func (c *AnnotatedContext) EvaluateComponent(heads []string, recursive bool, fn func() error) error {
	c.collector.Add(annotations.Event{
		Name:  annotations.FixpointBegin,
		Start: time.Now(),
		Data: map[string]interface{}{
			"predicates": heads,
			"recursive":  recursive,
		},
	})
	return fn()
}

func (c *AnnotatedContext) FixpointRound(start time.Time, round int, heads []string, total, added int) {
	c.collector.AddTiming(annotations.FixpointRound, start, map[string]interface{}{
		"round":        round,
		"predicates":   heads,
		"tuples.total": total,
		"tuples.new":   added,
	})
}

func (c *AnnotatedContext) RuleAdded(rule string) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RuleAdded,
		Start: time.Now(),
		Data:  map[string]interface{}{"rule": rule},
	})
}

func (c *AnnotatedContext) RuleRemoved(rule string, last bool) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RuleRemoved,
		Start: time.Now(),
		Data:  map[string]interface{}{"rule": rule, "last": last},
	})
}

func (c *AnnotatedContext) Collector() *annotations.Collector {
	return c.collector
}
