package query

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/datalog"
)

// Compile translates a condition list into datalog clauses, preserving input
// order. An empty list compiles to the self clause of rootVar so the program
// still binds its root. Clauses whose relation has no translator contribute
// nothing.
func (r *Registry) Compile(conditions []condition.Condition, rootVar string) []datalog.Clause {
	if len(conditions) == 0 {
		return r.translate(LabelSelf, rootVar, rootVar, "")
	}
	var out []datalog.Clause
	for _, c := range conditions {
		out = append(out, r.compileCondition(c)...)
	}
	return out
}

func (r *Registry) compileCondition(c condition.Condition) []datalog.Clause {
	switch c := c.(type) {
	case condition.Clause:
		return r.translate(c.Relation, c.Source, c.Target, c.UID)
	case condition.NegatedClause:
		clauses := r.translate(c.Relation, c.Source, c.Target, c.UID)
		if len(clauses) == 0 {
			return nil
		}
		return []datalog.Clause{datalog.NotClause{Clauses: clauses}}
	case condition.Or:
		return []datalog.Clause{r.compileBranches(c.Branches)}
	case condition.NegatedOr:
		return []datalog.Clause{datalog.NotClause{Clauses: []datalog.Clause{r.compileBranches(c.Branches)}}}
	default:
		panic(fmt.Errorf("query: unknown condition type %T", c))
	}
}

func (r *Registry) compileBranches(branches [][]condition.Condition) datalog.OrJoinClause {
	ands := make([]datalog.Clause, len(branches))
	varSets := make([][]datalog.Variable, len(branches))
	for i, b := range branches {
		var clauses []datalog.Clause
		for _, c := range b {
			clauses = append(clauses, r.compileCondition(c)...)
		}
		ands[i] = datalog.AndClause{Clauses: clauses}
		varSets[i] = datalog.Variables(clauses)
	}
	return datalog.OrJoinClause{Vars: datalog.Union(varSets...), Clauses: ands}
}

// Translate resolves one clause through the registry.
func (r *Registry) Translate(relation, source, target, uid string) []datalog.Clause {
	return r.translate(relation, source, target, uid)
}

func (r *Registry) translate(relation, source, target, uid string) []datalog.Clause {
	t, _, ok := r.Lookup(relation)
	if !ok || t.Callback == nil {
		r.logger.Debug("no translator for relation", zap.String("relation", relation), zap.String("uid", uid))
		return nil
	}
	return t.Callback(source, target, uid)
}
