package datalog

import (
	"errors"
	"fmt"
)

// ErrUnknownClause is raised (via panic) when a traversal meets a clause type it
// does not handle. It indicates the IR gained a variant without its walkers.
var ErrUnknownClause = errors.New("unknown datalog clause")

// Variables returns the free variables of clauses in first-appearance order.
// Join clauses contribute only their declared variables; the blank variable is
// never included.
func Variables(clauses []Clause) []Variable {
	var out []Variable
	seen := make(map[string]bool)
	add := func(t Term) {
		v, ok := t.(Variable)
		if !ok || v.IsBlank() || seen[v.Name] {
			return
		}
		seen[v.Name] = true
		out = append(out, v)
	}
	var walk func(cs []Clause)
	walk = func(cs []Clause) {
		for _, c := range cs {
			switch c := c.(type) {
			case DataPattern:
				add(c.Entity)
				add(c.Attribute)
				add(c.Value)
			case FnExpr:
				for _, a := range c.Args {
					add(a)
				}
				add(c.Binding)
			case PredExpr:
				for _, a := range c.Args {
					add(a)
				}
			case RuleExpr:
				for _, a := range c.Args {
					add(a)
				}
			case NotClause:
				walk(c.Clauses)
			case OrClause:
				walk(c.Clauses)
			case AndClause:
				walk(c.Clauses)
			case NotJoinClause:
				for _, v := range c.Vars {
					add(v)
				}
			case OrJoinClause:
				for _, v := range c.Vars {
					add(v)
				}
			default:
				panic(fmt.Errorf("%w: %T", ErrUnknownClause, c))
			}
		}
	}
	walk(clauses)
	return out
}

// HasVariable reports whether name is among the free variables of clauses.
func HasVariable(clauses []Clause, name string) bool {
	for _, v := range Variables(clauses) {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Intersect returns the variables present in every set, in the order of the first.
func Intersect(sets ...[]Variable) []Variable {
	if len(sets) == 0 {
		return nil
	}
	out := make([]Variable, 0, len(sets[0]))
	for _, v := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if !containsVar(s, v.Name) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, v)
		}
	}
	return out
}

// Union returns the distinct variables of all sets in first-appearance order.
func Union(sets ...[]Variable) []Variable {
	var out []Variable
	for _, s := range sets {
		for _, v := range s {
			if !containsVar(out, v.Name) {
				out = append(out, v)
			}
		}
	}
	return out
}

func containsVar(vars []Variable, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return true
		}
	}
	return false
}
