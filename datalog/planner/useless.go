package planner

import (
	"github.com/wbrown/spanlog/datalog"
)

// RemoveUselessRelations drops body atoms that cannot contribute to the
// head. Starting from the head's variables, an atom whose output
// variables meet the relevant set is kept and its inputs and outputs
// become relevant; this repeats until the kept set stops growing.
// Atoms without output variables act as guards and are always kept.
//
// The returned rule shares no body slice with the input. If every atom
// would be dropped the rule is returned unchanged.
func RemoveUselessRelations(rule datalog.Rule) datalog.Rule {
	relevant := make(map[string]bool)
	for _, v := range rule.Head.FreeVars() {
		relevant[v] = true
	}

	kept := make([]bool, len(rule.Body))
	for i, atom := range rule.Body {
		if len(atom.OutputVars()) == 0 {
			kept[i] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for i, atom := range rule.Body {
			if kept[i] || !intersects(atom.OutputVars(), relevant) {
				continue
			}
			kept[i] = true
			changed = true
			for _, v := range atom.OutputVars() {
				relevant[v] = true
			}
			for _, v := range atom.InputVars() {
				relevant[v] = true
			}
		}
	}

	body := make([]datalog.Atom, 0, len(rule.Body))
	for i, atom := range rule.Body {
		if kept[i] {
			body = append(body, atom)
		}
	}
	if len(body) == 0 {
		body = append(body, rule.Body...)
	}
	return datalog.Rule{Head: rule.Head, Body: body}
}

func intersects(vars []string, set map[string]bool) bool {
	for _, v := range vars {
		if set[v] {
			return true
		}
	}
	return false
}
