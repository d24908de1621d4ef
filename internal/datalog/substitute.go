package datalog

import "fmt"

// Rule renames variables during substitution. A rule either renames the
// variable named From to To, or, when Any is set, renames every variable to
// ToFn(name).
type Rule struct {
	From string
	To   string
	Any  bool
	ToFn func(name string) string
}

// Rename returns a rule renaming from to to.
func Rename(from, to string) Rule {
	return Rule{From: from, To: to}
}

// Prefix returns a catch-all rule that prepends prefix to every variable.
func Prefix(prefix string) Rule {
	return Rule{Any: true, ToFn: func(name string) string { return prefix + name }}
}

// Substitute rewrites every variable in clauses through rules. For each
// variable the first matching rule wins, and each variable is rewritten once,
// so rules are applied simultaneously rather than chained. Binding sites and
// join variable lists are rewritten like any other reference. The blank
// variable is left alone.
//
// Applying the same rule set twice is idempotent only when no rule's target
// is another rule's source.
func Substitute(clauses []Clause, rules []Rule) []Clause {
	if clauses == nil {
		return nil
	}
	out := make([]Clause, len(clauses))
	for i, c := range clauses {
		out[i] = substituteClause(c, rules)
	}
	return out
}

func substituteClause(c Clause, rules []Rule) Clause {
	switch c := c.(type) {
	case DataPattern:
		return DataPattern{
			Entity:    substituteTerm(c.Entity, rules),
			Attribute: substituteTerm(c.Attribute, rules),
			Value:     substituteTerm(c.Value, rules),
		}
	case FnExpr:
		return FnExpr{Fn: c.Fn, Args: substituteTerms(c.Args, rules), Binding: substituteTerm(c.Binding, rules)}
	case PredExpr:
		return PredExpr{Pred: c.Pred, Args: substituteTerms(c.Args, rules)}
	case RuleExpr:
		return RuleExpr{Name: c.Name, Args: substituteTerms(c.Args, rules)}
	case NotClause:
		return NotClause{Clauses: Substitute(c.Clauses, rules)}
	case OrClause:
		return OrClause{Clauses: Substitute(c.Clauses, rules)}
	case AndClause:
		return AndClause{Clauses: Substitute(c.Clauses, rules)}
	case NotJoinClause:
		return NotJoinClause{Vars: substituteVars(c.Vars, rules), Clauses: Substitute(c.Clauses, rules)}
	case OrJoinClause:
		return OrJoinClause{Vars: substituteVars(c.Vars, rules), Clauses: Substitute(c.Clauses, rules)}
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownClause, c))
	}
}

func substituteTerms(terms []Term, rules []Rule) []Term {
	if terms == nil {
		return nil
	}
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = substituteTerm(t, rules)
	}
	return out
}

func substituteVars(vars []Variable, rules []Rule) []Variable {
	if vars == nil {
		return nil
	}
	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = substituteVar(v, rules)
	}
	return out
}

func substituteTerm(t Term, rules []Rule) Term {
	v, ok := t.(Variable)
	if !ok {
		return t
	}
	return substituteVar(v, rules)
}

func substituteVar(v Variable, rules []Rule) Variable {
	if v.IsBlank() {
		return v
	}
	for _, r := range rules {
		if r.Any {
			return Variable{Name: r.ToFn(v.Name)}
		}
		if r.From == v.Name {
			return Variable{Name: r.To}
		}
	}
	return v
}
