package planner

import (
	"sort"
	"strings"

	"github.com/wbrown/spanlog/datalog"
)

// BoundVariables computes the free variables a rule body binds.
// Plain relations bind their variables unconditionally; an IE relation
// binds its outputs once all of its inputs are bound. Iterates to a
// fixed point.
func BoundVariables(rule datalog.Rule) map[string]bool {
	bound := make(map[string]bool)
	for {
		before := len(bound)
		for _, atom := range rule.Body {
			if !allBound(atom.InputVars(), bound) {
				continue
			}
			for _, v := range atom.OutputVars() {
				bound[v] = true
			}
		}
		if len(bound) == before {
			return bound
		}
	}
}

// IsSafe reports whether every head variable and every IE input variable
// is bound by the body
func IsSafe(rule datalog.Rule) bool {
	return len(unboundVariables(rule)) == 0
}

// CheckSafety returns a SafetyError naming the unbound variables
func CheckSafety(rule datalog.Rule) error {
	unbound := unboundVariables(rule)
	if len(unbound) == 0 {
		return nil
	}
	return datalog.Errorf(datalog.SafetyError, rule.Head.Name,
		"rule not safe: variables %s are not bound in %s", strings.Join(unbound, ", "), rule)
}

func unboundVariables(rule datalog.Rule) []string {
	bound := BoundVariables(rule)
	missing := make(map[string]bool)
	for _, v := range rule.Head.FreeVars() {
		if !bound[v] {
			missing[v] = true
		}
	}
	for _, atom := range rule.Body {
		if _, ok := atom.(datalog.IERelation); !ok {
			continue
		}
		for _, v := range atom.InputVars() {
			if !bound[v] {
				missing[v] = true
			}
		}
	}
	out := make([]string, 0, len(missing))
	for v := range missing {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ResolutionOrder orders a safe rule's body for evaluation: plain
// relations first in body order, then IE relations in the order their
// inputs become bound. Atoms that can never be bound come last.
func ResolutionOrder(body []datalog.Atom) []datalog.Atom {
	ordered := make([]datalog.Atom, 0, len(body))
	bound := make(map[string]bool)
	var pending []datalog.Atom
	for _, atom := range body {
		if _, ok := atom.(datalog.Relation); ok {
			ordered = append(ordered, atom)
			for _, v := range atom.OutputVars() {
				bound[v] = true
			}
		} else {
			pending = append(pending, atom)
		}
	}

	for len(pending) > 0 {
		var next []datalog.Atom
		for _, atom := range pending {
			if allBound(atom.InputVars(), bound) {
				ordered = append(ordered, atom)
				for _, v := range atom.OutputVars() {
					bound[v] = true
				}
			} else {
				next = append(next, atom)
			}
		}
		if len(next) == len(pending) {
			ordered = append(ordered, next...)
			break
		}
		pending = next
	}
	return ordered
}

func allBound(vars []string, bound map[string]bool) bool {
	for _, v := range vars {
		if !bound[v] {
			return false
		}
	}
	return true
}
