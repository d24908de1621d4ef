// Package condition defines the user-authored query condition tree: clauses,
// negated clauses and (negated) or-branches, plus result selections.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Condition is one node of a condition tree. The set of implementations is closed.
type Condition interface {
	conditionNode()
	ID() string
}

// Clause constrains Source by Relation to Target.
type Clause struct {
	Source   string
	Relation string
	Target   string
	UID      string
}

func (Clause) conditionNode() {}

// ID returns the clause uid.
func (c Clause) ID() string { return c.UID }

// NegatedClause holds when its clause does not.
type NegatedClause struct {
	Source   string
	Relation string
	Target   string
	UID      string
}

func (NegatedClause) conditionNode() {}

// ID returns the clause uid.
func (c NegatedClause) ID() string { return c.UID }

// Clause returns the positive form of c.
func (c NegatedClause) Clause() Clause {
	return Clause{Source: c.Source, Relation: c.Relation, Target: c.Target, UID: c.UID}
}

// Or holds when any branch holds. Each branch is a conjunction.
type Or struct {
	Branches [][]Condition
	UID      string
}

func (Or) conditionNode() {}

// ID returns the or-node uid.
func (o Or) ID() string { return o.UID }

// NegatedOr holds when no branch holds.
type NegatedOr struct {
	Branches [][]Condition
	UID      string
}

func (NegatedOr) conditionNode() {}

// ID returns the or-node uid.
func (o NegatedOr) ID() string { return o.UID }

// Selection names an extra result column: Text is the expression, Label the column.
type Selection struct {
	UID   string `yaml:"uid,omitempty" json:"uid,omitempty"`
	Text  string `yaml:"text" json:"text" validate:"required"`
	Label string `yaml:"label" json:"label"`
}

// ErrDuplicateUID is returned by Validate when two nodes share a uid.
var ErrDuplicateUID = errors.New("duplicate condition uid")

// Validate checks that every uid in the tree is unique. Empty uids are ignored.
func Validate(conditions []Condition) error {
	seen := make(map[string]bool)
	var err error
	Walk(conditions, func(c Condition) bool {
		id := c.ID()
		if id == "" {
			return true
		}
		if seen[id] {
			err = fmt.Errorf("%w: %s", ErrDuplicateUID, id)
			return false
		}
		seen[id] = true
		return true
	})
	return err
}

// Walk visits every condition depth-first in order. Returning false stops the walk.
func Walk(conditions []Condition, fn func(Condition) bool) bool {
	for _, c := range conditions {
		if !fn(c) {
			return false
		}
		var branches [][]Condition
		switch c := c.(type) {
		case Or:
			branches = c.Branches
		case NegatedOr:
			branches = c.Branches
		}
		for _, b := range branches {
			if !Walk(b, fn) {
				return false
			}
		}
	}
	return true
}

// AssignUIDs fills empty uids with positional ids ("c1", "c2.1.1", ...).
func AssignUIDs(conditions []Condition) []Condition {
	return assignUIDs(conditions, "c")
}

func assignUIDs(conditions []Condition, prefix string) []Condition {
	out := make([]Condition, len(conditions))
	for i, c := range conditions {
		id := prefix + strconv.Itoa(i+1)
		switch c := c.(type) {
		case Clause:
			if c.UID == "" {
				c.UID = id
			}
			out[i] = c
		case NegatedClause:
			if c.UID == "" {
				c.UID = id
			}
			out[i] = c
		case Or:
			if c.UID == "" {
				c.UID = id
			}
			c.Branches = assignBranches(c.Branches, c.UID)
			out[i] = c
		case NegatedOr:
			if c.UID == "" {
				c.UID = id
			}
			c.Branches = assignBranches(c.Branches, c.UID)
			out[i] = c
		}
	}
	return out
}

func assignBranches(branches [][]Condition, parent string) [][]Condition {
	out := make([][]Condition, len(branches))
	for i, b := range branches {
		out[i] = assignUIDs(b, parent+"."+strconv.Itoa(i+1)+".")
	}
	return out
}

// ParseClause parses the compact "source | relation | target" form used on the
// command line. A leading "not " or "!" negates the clause.
func ParseClause(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	negated := false
	switch {
	case strings.HasPrefix(s, "!"):
		negated = true
		s = strings.TrimSpace(s[1:])
	case strings.HasPrefix(strings.ToLower(s), "not "):
		negated = true
		s = strings.TrimSpace(s[4:])
	}

	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid clause %q: expected \"source | relation | target\"", s)
	}
	source := strings.TrimSpace(parts[0])
	relation := strings.TrimSpace(parts[1])
	target := strings.TrimSpace(parts[2])
	if source == "" || relation == "" {
		return nil, fmt.Errorf("invalid clause %q: source and relation are required", s)
	}
	if negated {
		return NegatedClause{Source: source, Relation: relation, Target: target}, nil
	}
	return Clause{Source: source, Relation: relation, Target: target}, nil
}

// ParseSelection parses "expression AS label". Without AS the expression is
// also the label.
func ParseSelection(s string) Selection {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if i := strings.LastIndex(lower, " as "); i >= 0 {
		return Selection{Text: strings.TrimSpace(s[:i]), Label: strings.TrimSpace(s[i+4:])}
	}
	return Selection{Text: s, Label: s}
}

// String renders c in the compact form accepted by ParseClause; or-nodes use
// a parenthesized "a ; b OR c" rendering for display only.
func String(c Condition) string {
	switch c := c.(type) {
	case Clause:
		return fmt.Sprintf("%s | %s | %s", c.Source, c.Relation, c.Target)
	case NegatedClause:
		return fmt.Sprintf("not %s | %s | %s", c.Source, c.Relation, c.Target)
	case Or:
		return "(" + branchesString(c.Branches) + ")"
	case NegatedOr:
		return "not (" + branchesString(c.Branches) + ")"
	default:
		return ""
	}
}

func branchesString(branches [][]Condition) string {
	parts := make([]string, len(branches))
	for i, b := range branches {
		inner := make([]string, len(b))
		for j, c := range b {
			inner[j] = String(c)
		}
		parts[i] = strings.Join(inner, " ; ")
	}
	return strings.Join(parts, " OR ")
}
