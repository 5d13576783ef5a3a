package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// RelationInfo represents the basic info about a relation for rendering
type RelationInfo struct {
	Name       string
	Attrs      []string
	TupleCount int
}

// RelationRenderer provides pretty-printing for relations
type RelationRenderer struct {
	useColor bool
}

// NewRelationRenderer creates a new relation renderer
func NewRelationRenderer(useColor bool) *RelationRenderer {
	return &RelationRenderer{useColor: useColor}
}

// RenderRelation renders a single relation as a string
func (r *RelationRenderer) RenderRelation(rel RelationInfo) string {
	name := rel.Name
	if name == "" {
		name = "Relation"
	}
	attrList := strings.Join(rel.Attrs, " ")

	if r.useColor {
		return fmt.Sprintf("%s%s%s%s%s",
			color.BlueString(name+"(["),
			color.CyanString(attrList),
			color.BlueString("], "),
			r.colorizeCount("Tuples", rel.TupleCount),
			color.BlueString(")"))
	}
	return fmt.Sprintf("%s([%s], %d Tuples)", name, attrList, rel.TupleCount)
}

// RenderRelations renders multiple relations joined by sep
func (r *RelationRenderer) RenderRelations(rels []RelationInfo, sep string) string {
	parts := make([]string, len(rels))
	for i, rel := range rels {
		parts[i] = r.RenderRelation(rel)
	}
	if r.useColor {
		sep = color.YellowString(sep)
	}
	return strings.Join(parts, sep)
}

// RenderOperator renders an operator application: Op(inputs) → result
func (r *RelationRenderer) RenderOperator(op string, inputs []RelationInfo, result RelationInfo) string {
	sep := ", "
	switch op {
	case "Join":
		sep = " × "
	case "Union":
		sep = " ∪ "
	}
	arrow := " → "
	if r.useColor {
		op = color.BlueString(op)
		arrow = color.YellowString(arrow)
	}
	return fmt.Sprintf("%s(%s)%s%s", op, r.RenderRelations(inputs, sep), arrow, r.RenderRelation(result))
}

// colorizeCount formats a count with color based on size
func (r *RelationRenderer) colorizeCount(label string, count int) string {
	if !r.useColor {
		return fmt.Sprintf("%d %s", count, label)
	}

	countStr := fmt.Sprintf("%d", count)

	// Color based on size
	switch {
	case count == 0:
		countStr = color.RedString(countStr)
	case count < 100:
		countStr = color.GreenString(countStr)
	case count < 10000:
		countStr = color.YellowString(countStr)
	default:
		countStr = color.RedString(countStr)
	}

	return fmt.Sprintf("%s %s", countStr, label)
}
