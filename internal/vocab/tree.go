package vocab

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/tree"
)

// Keys of declaration settings in the content tree.
const (
	keyFormat        = "Format"
	keySpecification = "Specification"
	keyTemplate      = "Template"
	keyShortcut      = "Shortcut"
	keySource        = "Source"
	keyDestination   = "Destination"
	keyComplement    = "Complement"
	keyIf            = "If"
	keyNodePositions = "node positions"

	KeyNodes     = "Nodes"
	KeyRelations = "Relations"
)

// ReadNodes reads node type declarations stored as children of parentUID.
// Each child's text is the display label; its uid becomes the type id.
func ReadNodes(a tree.Accessor, parentUID string) ([]Node, error) {
	children, err := a.Children(parentUID)
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, decl := range children {
		n := Node{Type: decl.UID, Text: strings.TrimSpace(decl.Text)}
		if n.Format, err = settingValue(a, decl.UID, keyFormat); err != nil {
			return nil, err
		}
		if n.Shortcut, err = settingValue(a, decl.UID, keyShortcut); err != nil {
			return nil, err
		}
		if specNode, ok, err := tree.ChildByKey(a, decl.UID, keySpecification); err != nil {
			return nil, err
		} else if ok {
			spec, err := condition.ReadTree(a, specNode.UID)
			if err != nil {
				return nil, fmt.Errorf("node %q specification: %w", n.Text, err)
			}
			n.Specification = spec
		}
		if tmplNode, ok, err := tree.ChildByKey(a, decl.UID, keyTemplate); err != nil {
			return nil, err
		} else if ok {
			lines, err := a.Children(tmplNode.UID)
			if err != nil {
				return nil, err
			}
			for _, l := range lines {
				n.Template = append(n.Template, l.Text)
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// ReadRelations reads relation declarations stored as children of parentUID.
// Each And group under If becomes its own Relation sharing the label, so an
// edge may be satisfied by any of the groups.
func ReadRelations(a tree.Accessor, parentUID string) ([]Relation, error) {
	children, err := a.Children(parentUID)
	if err != nil {
		return nil, err
	}
	var out []Relation
	for _, decl := range children {
		base := Relation{ID: decl.UID, Label: strings.TrimSpace(decl.Text)}
		if base.Source, err = settingValue(a, decl.UID, keySource); err != nil {
			return nil, err
		}
		if base.Destination, err = settingValue(a, decl.UID, keyDestination); err != nil {
			return nil, err
		}
		if base.Complement, err = settingValue(a, decl.UID, keyComplement); err != nil {
			return nil, err
		}

		ifNode, ok, err := tree.ChildByKey(a, decl.UID, keyIf)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		groups, err := a.Children(ifNode.UID)
		if err != nil {
			return nil, err
		}
		for i, g := range groups {
			triples, err := readTriples(a, g.UID)
			if err != nil {
				return nil, fmt.Errorf("relation %q: %w", base.Label, err)
			}
			r := base
			if len(groups) > 1 {
				r.ID = fmt.Sprintf("%s-%d", base.ID, i+1)
			}
			r.Triples = triples
			out = append(out, r)
		}
	}
	return out, nil
}

func readTriples(a tree.Accessor, groupUID string) ([]Triple, error) {
	nodes, err := a.Children(groupUID)
	if err != nil {
		return nil, err
	}
	var out []Triple
	for _, n := range nodes {
		if strings.EqualFold(strings.TrimSpace(n.Text), keyNodePositions) {
			continue
		}
		relNodes, err := a.Children(n.UID)
		if err != nil {
			return nil, err
		}
		if len(relNodes) == 0 {
			return nil, fmt.Errorf("triple %q has no relation", n.Text)
		}
		target, err := tree.FirstChildText(a, relNodes[0].UID)
		if err != nil {
			return nil, err
		}
		out = append(out, Triple{
			Source:   strings.TrimSpace(n.Text),
			Relation: strings.TrimSpace(relNodes[0].Text),
			Target:   strings.TrimSpace(target),
		})
	}
	return out, nil
}

func settingValue(a tree.Accessor, uid, key string) (string, error) {
	n, ok, err := tree.ChildByKey(a, uid, key)
	if err != nil || !ok {
		return "", err
	}
	v, err := tree.FirstChildText(a, n.UID)
	return strings.TrimSpace(v), err
}

// WriteNode appends a node type declaration under parentUID and returns its uid.
func WriteNode(a tree.Accessor, parentUID string, order int, n Node) (string, error) {
	uid, err := a.Create(parentUID, order, n.Text)
	if err != nil {
		return "", err
	}
	i := 0
	for _, kv := range [][2]string{{keyFormat, n.Format}, {keyShortcut, n.Shortcut}} {
		if kv[1] == "" {
			continue
		}
		if err := writeSetting(a, uid, i, kv[0], kv[1]); err != nil {
			return "", err
		}
		i++
	}
	if n.HasSpecification() {
		specUID, err := a.Create(uid, i, keySpecification)
		if err != nil {
			return "", err
		}
		if err := condition.WriteTree(a, specUID, n.Specification); err != nil {
			return "", err
		}
		i++
	}
	if len(n.Template) > 0 {
		tmplUID, err := a.Create(uid, i, keyTemplate)
		if err != nil {
			return "", err
		}
		for j, line := range n.Template {
			if _, err := a.Create(tmplUID, j, line); err != nil {
				return "", err
			}
		}
	}
	return uid, nil
}

// WriteRelation appends a relation declaration with a single And group.
func WriteRelation(a tree.Accessor, parentUID string, order int, r Relation) (string, error) {
	uid, err := a.Create(parentUID, order, r.Label)
	if err != nil {
		return "", err
	}
	settings := [][2]string{{keySource, r.Source}, {keyDestination, r.Destination}, {keyComplement, r.Complement}}
	for i, kv := range settings {
		if err := writeSetting(a, uid, i, kv[0], kv[1]); err != nil {
			return "", err
		}
	}
	ifUID, err := a.Create(uid, len(settings), keyIf)
	if err != nil {
		return "", err
	}
	andUID, err := a.Create(ifUID, 0, "And")
	if err != nil {
		return "", err
	}
	for i, t := range r.Triples {
		srcUID, err := a.Create(andUID, i, t.Source)
		if err != nil {
			return "", err
		}
		relUID, err := a.Create(srcUID, 0, t.Relation)
		if err != nil {
			return "", err
		}
		if _, err := a.Create(relUID, 0, t.Target); err != nil {
			return "", err
		}
	}
	return uid, nil
}

func writeSetting(a tree.Accessor, uid string, order int, key, value string) error {
	keyUID, err := a.Create(uid, order, key)
	if err != nil {
		return err
	}
	_, err = a.Create(keyUID, 0, value)
	return err
}

// WriteVocabulary replaces the "Nodes" and "Relations" children of uid with
// v's declarations. Built-in node types are skipped. Relation endpoints are
// written as the uids of the node declarations they name.
func WriteVocabulary(a tree.Accessor, uid string, v Vocabulary) error {
	if err := tree.DeleteChildren(a, uid); err != nil {
		return err
	}
	nodesUID, err := a.Create(uid, 0, KeyNodes)
	if err != nil {
		return err
	}
	relsUID, err := a.Create(uid, 1, KeyRelations)
	if err != nil {
		return err
	}

	uids := make(map[string]string)
	i := 0
	for _, n := range v.Nodes {
		if n.BackedBy == BackedByDefault {
			continue
		}
		declUID, err := WriteNode(a, nodesUID, i, n)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.Text, err)
		}
		uids[n.Type] = declUID
		i++
	}
	for j, r := range v.Relations {
		if u, ok := uids[r.Source]; ok {
			r.Source = u
		}
		if u, ok := uids[r.Destination]; ok {
			r.Destination = u
		}
		if _, err := WriteRelation(a, relsUID, j, r); err != nil {
			return fmt.Errorf("relation %q: %w", r.Label, err)
		}
	}
	return nil
}

// ReadVocabulary reads declarations written by WriteVocabulary. Node types
// are named by their slugged label and relation endpoints are mapped to
// those names.
func ReadVocabulary(a tree.Accessor, uid string) (Vocabulary, error) {
	var v Vocabulary
	if n, ok, err := tree.ChildByKey(a, uid, KeyNodes); err != nil {
		return v, err
	} else if ok {
		if v.Nodes, err = ReadNodes(a, n.UID); err != nil {
			return v, err
		}
	}
	if n, ok, err := tree.ChildByKey(a, uid, KeyRelations); err != nil {
		return v, err
	} else if ok {
		if v.Relations, err = ReadRelations(a, n.UID); err != nil {
			return v, err
		}
	}

	types := make(map[string]string, len(v.Nodes))
	for i, n := range v.Nodes {
		name := slug.Make(n.Text)
		if name == "" {
			name = n.Type
		}
		types[n.Type] = name
		v.Nodes[i].Type = name
	}
	for i, r := range v.Relations {
		if name, ok := types[r.Source]; ok {
			v.Relations[i].Source = name
		}
		if name, ok := types[r.Destination]; ok {
			v.Relations[i].Destination = name
		}
	}
	return v, nil
}
