// Package tree abstracts the hierarchical content tree that condition lists,
// selections and vocabulary declarations are persisted in.
package tree

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrNodeNotFound is returned when a uid does not name a node.
var ErrNodeNotFound = errors.New("tree node not found")

// Node is one outline node.
type Node struct {
	UID   string
	Text  string
	Order int
}

// Accessor reads and writes an outline. Children are returned in order.
type Accessor interface {
	Children(uid string) ([]Node, error)
	Create(parentUID string, order int, text string) (string, error)
	Update(uid string, text string) error
	Delete(uid string) error
}

// ChildByKey returns the first child of parent whose text equals key,
// ignoring case and surrounding whitespace.
func ChildByKey(a Accessor, parentUID, key string) (Node, bool, error) {
	children, err := a.Children(parentUID)
	if err != nil {
		return Node{}, false, err
	}
	key = strings.TrimSpace(key)
	for _, c := range children {
		if strings.EqualFold(strings.TrimSpace(c.Text), key) {
			return c, true, nil
		}
	}
	return Node{}, false, nil
}

// FirstChildText returns the text of the first child of uid, or "".
func FirstChildText(a Accessor, uid string) (string, error) {
	children, err := a.Children(uid)
	if err != nil || len(children) == 0 {
		return "", err
	}
	return children[0].Text, nil
}

// SetValue makes text the only child of uid, reusing the existing first child.
func SetValue(a Accessor, uid, text string) error {
	children, err := a.Children(uid)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		_, err = a.Create(uid, 0, text)
		return err
	}
	if children[0].Text != text {
		if err := a.Update(children[0].UID, text); err != nil {
			return err
		}
	}
	for _, c := range children[1:] {
		if err := a.Delete(c.UID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteChildren removes every child of uid.
func DeleteChildren(a Accessor, uid string) error {
	children, err := a.Children(uid)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := a.Delete(c.UID); err != nil {
			return err
		}
	}
	return nil
}

// MemTree is an in-memory Accessor. The zero value is not usable; use NewMemTree.
type MemTree struct {
	mu       sync.Mutex
	nodes    map[string]*memNode
	nextID   int
	rootUIDs []string
}

type memNode struct {
	Node
	parent   string
	children []string
}

// NewMemTree creates an empty in-memory tree. Nodes created with an empty
// parent uid are roots.
func NewMemTree() *MemTree {
	return &MemTree{nodes: make(map[string]*memNode)}
}

// Children implements Accessor.
func (t *MemTree) Children(uid string) ([]Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := t.rootUIDs
	if uid != "" {
		n, ok := t.nodes[uid]
		if !ok {
			return nil, ErrNodeNotFound
		}
		ids = n.children
	}
	out := make([]Node, 0, len(ids))
	for i, id := range ids {
		node := t.nodes[id].Node
		node.Order = i
		out = append(out, node)
	}
	return out, nil
}

// Create implements Accessor. An order past the end appends.
func (t *MemTree) Create(parentUID string, order int, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parentUID != "" {
		if _, ok := t.nodes[parentUID]; !ok {
			return "", ErrNodeNotFound
		}
	}
	t.nextID++
	uid := "mem-" + strconv.Itoa(t.nextID)
	t.nodes[uid] = &memNode{Node: Node{UID: uid, Text: text}, parent: parentUID}

	siblings := t.rootUIDs
	if parentUID != "" {
		siblings = t.nodes[parentUID].children
	}
	if order < 0 || order > len(siblings) {
		order = len(siblings)
	}
	siblings = append(siblings, "")
	copy(siblings[order+1:], siblings[order:])
	siblings[order] = uid
	if parentUID != "" {
		t.nodes[parentUID].children = siblings
	} else {
		t.rootUIDs = siblings
	}
	return uid, nil
}

// Update implements Accessor.
func (t *MemTree) Update(uid string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[uid]
	if !ok {
		return ErrNodeNotFound
	}
	n.Text = text
	return nil
}

// Delete implements Accessor. Descendants are removed with the node.
func (t *MemTree) Delete(uid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[uid]
	if !ok {
		return ErrNodeNotFound
	}
	if n.parent != "" {
		p := t.nodes[n.parent]
		p.children = removeID(p.children, uid)
	} else {
		t.rootUIDs = removeID(t.rootUIDs, uid)
	}
	t.deleteRecursive(uid)
	return nil
}

func (t *MemTree) deleteRecursive(uid string) {
	n := t.nodes[uid]
	for _, c := range n.children {
		t.deleteRecursive(c)
	}
	delete(t.nodes, uid)
}

// Outline renders the subtree under uid as an indented outline, one node per line.
func Outline(a Accessor, uid string) (string, error) {
	var sb strings.Builder
	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		children, err := a.Children(id)
		if err != nil {
			return err
		}
		sort.SliceStable(children, func(i, j int) bool { return children[i].Order < children[j].Order })
		for _, c := range children {
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString("- ")
			sb.WriteString(c.Text)
			sb.WriteString("\n")
			if err := walk(c.UID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(uid, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func removeID(ids []string, uid string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != uid {
			out = append(out, id)
		}
	}
	return out
}
