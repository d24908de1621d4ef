package datalog

// Query is a complete program: what to find, external inputs, and the where block.
type Query struct {
	Find  []FindElem
	In    []Variable // bound after the implicit $ database input
	Where []Clause
}

// FindElem is one column of the :find clause.
type FindElem interface {
	findNode()
}

// FindVar returns the raw value bound to a variable.
type FindVar struct {
	Var Variable
}

func (FindVar) findNode() {}

// Pull returns a map of attributes pulled from the entity bound to Var.
type Pull struct {
	Var     Variable
	Pattern []PullAttr
}

func (Pull) findNode() {}

// PullAttr selects one attribute. Nested is only meaningful for ref attributes
// and pulls the referenced entities with that pattern.
type PullAttr struct {
	Attr   Keyword
	Nested []PullAttr
}

// Attrs builds a flat pull pattern.
func Attrs(names ...string) []PullAttr {
	out := make([]PullAttr, len(names))
	for i, n := range names {
		out[i] = PullAttr{Attr: Keyword(n)}
	}
	return out
}

// Nest builds a pull attribute that follows a ref into the nested pattern.
func Nest(attr string, nested ...PullAttr) PullAttr {
	return PullAttr{Attr: Keyword(attr), Nested: nested}
}
