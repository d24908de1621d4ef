package condition

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node types used in the serialized forms.
const (
	TypeClause    = "clause"
	TypeNot       = "not"
	TypeOr        = "or"
	TypeNotOr     = "not or"
	typeNotOrDash = "not-or"
)

// Spec is the serialized shape of a condition.
type Spec struct {
	UID      string   `yaml:"uid,omitempty" json:"uid,omitempty"`
	Type     string   `yaml:"type,omitempty" json:"type,omitempty"`
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
	Relation string   `yaml:"relation,omitempty" json:"relation,omitempty"`
	Target   string   `yaml:"target,omitempty" json:"target,omitempty"`
	Not      bool     `yaml:"not,omitempty" json:"not,omitempty"`
	Branches [][]Spec `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// List is a condition list that (de)serializes through Spec.
type List []Condition

// ToSpec converts a condition to its serialized shape.
func ToSpec(c Condition) Spec {
	switch c := c.(type) {
	case Clause:
		return Spec{UID: c.UID, Type: TypeClause, Source: c.Source, Relation: c.Relation, Target: c.Target}
	case NegatedClause:
		return Spec{UID: c.UID, Type: TypeNot, Source: c.Source, Relation: c.Relation, Target: c.Target}
	case Or:
		return Spec{UID: c.UID, Type: TypeOr, Branches: branchesToSpec(c.Branches)}
	case NegatedOr:
		return Spec{UID: c.UID, Type: TypeNotOr, Branches: branchesToSpec(c.Branches)}
	default:
		panic(fmt.Sprintf("condition: unknown condition type %T", c))
	}
}

// FromSpec converts a serialized condition. An empty type means "clause";
// Not on a clause or or-node negates it.
func FromSpec(s Spec) (Condition, error) {
	typ := strings.ToLower(strings.TrimSpace(s.Type))
	if typ == "" {
		typ = TypeClause
		if len(s.Branches) > 0 {
			typ = TypeOr
		}
	}
	if typ == typeNotOrDash {
		typ = TypeNotOr
	}
	if s.Not {
		switch typ {
		case TypeClause:
			typ = TypeNot
		case TypeOr:
			typ = TypeNotOr
		}
	}

	switch typ {
	case TypeClause:
		return Clause{Source: s.Source, Relation: s.Relation, Target: s.Target, UID: s.UID}, nil
	case TypeNot:
		return NegatedClause{Source: s.Source, Relation: s.Relation, Target: s.Target, UID: s.UID}, nil
	case TypeOr, TypeNotOr:
		branches, err := branchesFromSpec(s.Branches)
		if err != nil {
			return nil, err
		}
		if typ == TypeOr {
			return Or{Branches: branches, UID: s.UID}, nil
		}
		return NegatedOr{Branches: branches, UID: s.UID}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", s.Type)
	}
}

func branchesToSpec(branches [][]Condition) [][]Spec {
	out := make([][]Spec, len(branches))
	for i, b := range branches {
		out[i] = make([]Spec, len(b))
		for j, c := range b {
			out[i][j] = ToSpec(c)
		}
	}
	return out
}

func branchesFromSpec(branches [][]Spec) ([][]Condition, error) {
	out := make([][]Condition, len(branches))
	for i, b := range branches {
		out[i] = make([]Condition, 0, len(b))
		for _, s := range b {
			c, err := FromSpec(s)
			if err != nil {
				return nil, err
			}
			out[i] = append(out[i], c)
		}
	}
	return out, nil
}

// Specs converts the list to its serialized shape.
func (l List) Specs() []Spec {
	out := make([]Spec, len(l))
	for i, c := range l {
		out[i] = ToSpec(c)
	}
	return out
}

// FromSpecs builds a list from serialized conditions, assigning positional
// uids where missing.
func FromSpecs(specs []Spec) (List, error) {
	out := make([]Condition, 0, len(specs))
	for i, s := range specs {
		c, err := FromSpec(s)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return List(AssignUIDs(out)), nil
}

// MarshalYAML implements yaml.Marshaler.
func (l List) MarshalYAML() (interface{}, error) {
	return l.Specs(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List) UnmarshalYAML(value *yaml.Node) error {
	var specs []Spec
	if err := value.Decode(&specs); err != nil {
		return err
	}
	parsed, err := FromSpecs(specs)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*l = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Specs())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var specs []Spec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}
	parsed, err := FromSpecs(specs)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
