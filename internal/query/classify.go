package query

import (
	"strings"

	"github.com/aidanlsb/discourse/internal/vocab"
)

// Entity is the subset of an entity needed to classify operands.
type Entity struct {
	UID   string
	Title string
	Text  string
}

// EntityIndex answers identity lookups against the fact store.
type EntityIndex interface {
	EntityByUID(uid string) (Entity, bool)
	EntityByTitle(title string) (Entity, bool)
	Titles() []string
}

type emptyIndex struct{}

func (emptyIndex) EntityByUID(string) (Entity, bool)   { return Entity{}, false }
func (emptyIndex) EntityByTitle(string) (Entity, bool) { return Entity{}, false }
func (emptyIndex) Titles() []string                    { return nil }

// OperandKind is what a free-form clause operand refers to.
type OperandKind int

const (
	Unresolved OperandKind = iota
	Identifier
	PageTitle
	TypeName
)

func (k OperandKind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case PageTitle:
		return "page title"
	case TypeName:
		return "type name"
	default:
		return "unresolved"
	}
}

// Operand is a classified operand. Types holds the node types the operand
// resolves to; it is empty for unresolved operands.
type Operand struct {
	Token  string
	Kind   OperandKind
	Types  []string
	Entity Entity
}

// Classify decides what token refers to. Priority order: an existing entity
// uid, then an existing page title, then a node type name. Anything else is
// an open variable.
func (r *Registry) Classify(token string) Operand {
	token = strings.TrimSpace(token)
	op := Operand{Token: token}
	if token == "" {
		return op
	}
	if e, ok := r.index.EntityByUID(token); ok {
		op.Kind = Identifier
		op.Entity = e
		op.Types = r.entityTypes(e)
		return op
	}
	if e, ok := r.index.EntityByTitle(token); ok {
		op.Kind = PageTitle
		op.Entity = e
		op.Types = r.entityTypes(e)
		return op
	}
	if n, ok := r.vocab.FindNode(token); ok {
		op.Kind = TypeName
		op.Types = []string{n.Type}
		return op
	}
	return op
}

// entityTypes lists the node types whose format matches the entity. Pages
// and blocks also count as the built-in page and block types.
func (r *Registry) entityTypes(e Entity) []string {
	var out []string
	text := e.Title
	if text == "" {
		text = e.Text
	}
	for _, n := range r.vocab.Nodes {
		if n.BackedBy == vocab.BackedByDefault {
			continue
		}
		if n.MatchesFormat(text) {
			out = append(out, n.Type)
		}
	}
	if e.Title != "" {
		out = append(out, "page")
	} else {
		out = append(out, "block")
	}
	return out
}

// compatible reports whether an operand may stand in for the declared type.
func (op Operand) compatible(declared string, v vocab.Vocabulary) bool {
	if declared == vocab.AnyType || len(op.Types) == 0 {
		return true
	}
	want := declared
	if n, ok := v.FindNode(declared); ok {
		want = n.Type
	}
	for _, t := range op.Types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
