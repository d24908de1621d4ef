package condition

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/discourse/internal/tree"
)

// Child keys of a clause node.
const (
	keySource   = "source"
	keyRelation = "relation"
	keyTarget   = "target"
	keyNot      = "not"
)

// ReadTree reads the condition list stored under parentUID. Each child is a
// condition node whose text is its type; clause nodes hold keyed
// source/relation/target children, or-nodes hold one child per branch.
func ReadTree(a tree.Accessor, parentUID string) (List, error) {
	children, err := a.Children(parentUID)
	if err != nil {
		return nil, err
	}
	out := make(List, 0, len(children))
	for _, n := range children {
		c, err := readNode(a, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func readNode(a tree.Accessor, n tree.Node) (Condition, error) {
	typ := strings.ToLower(strings.TrimSpace(n.Text))
	negated, err := hasFlag(a, n.UID, keyNot)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeClause, TypeNot, "":
		source, err := keyedValue(a, n.UID, keySource)
		if err != nil {
			return nil, err
		}
		relation, err := keyedValue(a, n.UID, keyRelation)
		if err != nil {
			return nil, err
		}
		target, err := keyedValue(a, n.UID, keyTarget)
		if err != nil {
			return nil, err
		}
		if typ == TypeNot || negated {
			return NegatedClause{Source: source, Relation: relation, Target: target, UID: n.UID}, nil
		}
		return Clause{Source: source, Relation: relation, Target: target, UID: n.UID}, nil
	case TypeOr, TypeNotOr, typeNotOrDash:
		branchNodes, err := a.Children(n.UID)
		if err != nil {
			return nil, err
		}
		var branches [][]Condition
		for _, b := range branchNodes {
			if strings.EqualFold(strings.TrimSpace(b.Text), keyNot) {
				continue
			}
			list, err := ReadTree(a, b.UID)
			if err != nil {
				return nil, err
			}
			branches = append(branches, []Condition(list))
		}
		if typ == TypeOr && !negated {
			return Or{Branches: branches, UID: n.UID}, nil
		}
		return NegatedOr{Branches: branches, UID: n.UID}, nil
	default:
		return nil, fmt.Errorf("condition node %s: unknown type %q", n.UID, n.Text)
	}
}

func keyedValue(a tree.Accessor, uid, key string) (string, error) {
	n, ok, err := tree.ChildByKey(a, uid, key)
	if err != nil || !ok {
		return "", err
	}
	return tree.FirstChildText(a, n.UID)
}

func hasFlag(a tree.Accessor, uid, key string) (bool, error) {
	_, ok, err := tree.ChildByKey(a, uid, key)
	return ok, err
}

// WriteTree replaces the condition list stored under parentUID.
func WriteTree(a tree.Accessor, parentUID string, conditions List) error {
	if err := tree.DeleteChildren(a, parentUID); err != nil {
		return err
	}
	for i, c := range conditions {
		if err := writeNode(a, parentUID, i, c); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(a tree.Accessor, parentUID string, order int, c Condition) error {
	switch c := c.(type) {
	case Clause:
		return writeClause(a, parentUID, order, TypeClause, c.Source, c.Relation, c.Target)
	case NegatedClause:
		return writeClause(a, parentUID, order, TypeNot, c.Source, c.Relation, c.Target)
	case Or:
		return writeOr(a, parentUID, order, TypeOr, c.Branches)
	case NegatedOr:
		return writeOr(a, parentUID, order, TypeNotOr, c.Branches)
	default:
		return fmt.Errorf("unknown condition type %T", c)
	}
}

func writeClause(a tree.Accessor, parentUID string, order int, typ, source, relation, target string) error {
	uid, err := a.Create(parentUID, order, typ)
	if err != nil {
		return err
	}
	for i, kv := range [][2]string{{keySource, source}, {keyRelation, relation}, {keyTarget, target}} {
		keyUID, err := a.Create(uid, i, kv[0])
		if err != nil {
			return err
		}
		if _, err := a.Create(keyUID, 0, kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeOr(a tree.Accessor, parentUID string, order int, typ string, branches [][]Condition) error {
	uid, err := a.Create(parentUID, order, typ)
	if err != nil {
		return err
	}
	for i, b := range branches {
		branchUID, err := a.Create(uid, i, fmt.Sprintf("branch %d", i+1))
		if err != nil {
			return err
		}
		if err := WriteTree(a, branchUID, List(b)); err != nil {
			return err
		}
	}
	return nil
}

// ReadSelections reads selections stored under parentUID: each child's text
// is the column label and its first child is the expression.
func ReadSelections(a tree.Accessor, parentUID string) ([]Selection, error) {
	children, err := a.Children(parentUID)
	if err != nil {
		return nil, err
	}
	out := make([]Selection, 0, len(children))
	for _, n := range children {
		expr, err := tree.FirstChildText(a, n.UID)
		if err != nil {
			return nil, err
		}
		out = append(out, Selection{UID: n.UID, Label: n.Text, Text: expr})
	}
	return out, nil
}

// WriteSelections replaces the selections stored under parentUID.
func WriteSelections(a tree.Accessor, parentUID string, selections []Selection) error {
	if err := tree.DeleteChildren(a, parentUID); err != nil {
		return err
	}
	for i, s := range selections {
		uid, err := a.Create(parentUID, i, s.Label)
		if err != nil {
			return err
		}
		if _, err := a.Create(uid, 0, s.Text); err != nil {
			return err
		}
	}
	return nil
}

// Keys of the children a stored query keeps its parts under.
const (
	KeyConditions = "Conditions"
	KeySelections = "Selections"
)

// ReadQuery reads a query stored under uid. Conditions live under a
// "Conditions" child, or directly under uid when there is none; selections
// live under an optional "Selections" child.
func ReadQuery(a tree.Accessor, uid string) (List, []Selection, error) {
	condNode, ok, err := tree.ChildByKey(a, uid, KeyConditions)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		conds, err := ReadTree(a, uid)
		return conds, nil, err
	}
	conds, err := ReadTree(a, condNode.UID)
	if err != nil {
		return nil, nil, err
	}
	selNode, ok, err := tree.ChildByKey(a, uid, KeySelections)
	if err != nil || !ok {
		return conds, nil, err
	}
	sels, err := ReadSelections(a, selNode.UID)
	if err != nil {
		return nil, nil, err
	}
	return conds, sels, nil
}

// WriteQuery replaces the "Conditions" and "Selections" children of uid.
// Other children are left alone.
func WriteQuery(a tree.Accessor, uid string, conditions List, selections []Selection) error {
	condUID, err := keyedChild(a, uid, KeyConditions, 0)
	if err != nil {
		return err
	}
	if err := WriteTree(a, condUID, conditions); err != nil {
		return err
	}
	selUID, err := keyedChild(a, uid, KeySelections, 1)
	if err != nil {
		return err
	}
	return WriteSelections(a, selUID, selections)
}

func keyedChild(a tree.Accessor, uid, key string, order int) (string, error) {
	n, ok, err := tree.ChildByKey(a, uid, key)
	if err != nil {
		return "", err
	}
	if ok {
		return n.UID, nil
	}
	return a.Create(uid, order, key)
}
