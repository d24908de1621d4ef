// Package datalog defines the logic-query program the condition compiler
// emits: data patterns, predicate and function expressions, and the
// not/or/and/join blocks that combine them.
package datalog

// Term is an entity, attribute, value or argument position in a clause.
type Term interface {
	termNode()
}

// Variable is a logic variable. Name is stored without the leading '?'.
type Variable struct {
	Name string
}

func (Variable) termNode() {}

// Blank is the name of the anonymous variable that never binds.
const Blank = "_"

// IsBlank reports whether v is the anonymous variable.
func (v Variable) IsBlank() bool { return v.Name == Blank }

// Keyword is an attribute or other keyword constant such as :block/uid.
type Keyword string

// Constant is a literal value: string, int64, float64, bool or Keyword.
type Constant struct {
	Value interface{}
}

func (Constant) termNode() {}

// Var returns a variable term.
func Var(name string) Variable { return Variable{Name: name} }

// Str returns a string constant term.
func Str(s string) Constant { return Constant{Value: s} }

// Int returns an integer constant term.
func Int(n int64) Constant { return Constant{Value: n} }

// Attr returns a keyword constant term.
func Attr(kw string) Constant { return Constant{Value: Keyword(kw)} }

// Clause is one element of a :where block.
type Clause interface {
	clauseNode()
}

// DataPattern matches datoms: [?e :attr ?v].
type DataPattern struct {
	Entity    Term
	Attribute Term
	Value     Term
}

func (DataPattern) clauseNode() {}

// FnExpr binds the result of a function call: [(fn args...) ?binding].
type FnExpr struct {
	Fn      string
	Args    []Term
	Binding Term
}

func (FnExpr) clauseNode() {}

// PredExpr filters bindings: [(pred args...)].
type PredExpr struct {
	Pred string
	Args []Term
}

func (PredExpr) clauseNode() {}

// RuleExpr invokes a named rule: (name args...).
type RuleExpr struct {
	Name string
	Args []Term
}

func (RuleExpr) clauseNode() {}

// NotClause removes bindings for which every inner clause holds.
type NotClause struct {
	Clauses []Clause
}

func (NotClause) clauseNode() {}

// OrClause keeps bindings satisfying any inner clause.
type OrClause struct {
	Clauses []Clause
}

func (OrClause) clauseNode() {}

// AndClause groups clauses, typically as one branch of an or.
type AndClause struct {
	Clauses []Clause
}

func (AndClause) clauseNode() {}

// NotJoinClause is a not whose inner scope only shares Vars with the outside.
type NotJoinClause struct {
	Vars    []Variable
	Clauses []Clause
}

func (NotJoinClause) clauseNode() {}

// OrJoinClause is an or whose branches only share Vars with the outside.
type OrJoinClause struct {
	Vars    []Variable
	Clauses []Clause
}

func (OrJoinClause) clauseNode() {}

// Pattern builds a data pattern from an entity variable, attribute and value term.
func Pattern(entity string, attr string, value Term) DataPattern {
	return DataPattern{Entity: Var(entity), Attribute: Attr(attr), Value: value}
}
