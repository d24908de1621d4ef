package vocab

import (
	"strings"

	"github.com/aidanlsb/discourse/internal/condition"
)

const isA = "is a"

// Acyclic returns the vocabulary without the node types and relations whose
// resolution would recurse forever, plus the names of what was dropped.
// Resolving a node type recurses into the relations and types its
// specification uses; resolving a relation recurses into the relations of its
// triples and its declared types. Anything that reaches a cycle is dropped.
func (v Vocabulary) Acyclic() (Vocabulary, []string) {
	g := v.dependencyGraph()

	const (
		unvisited = iota
		visiting
		ok
		bad
	)
	state := make(map[string]int)
	var visit func(key string) bool
	visit = func(key string) bool {
		switch state[key] {
		case visiting, bad:
			state[key] = bad
			return false
		case ok:
			return true
		}
		state[key] = visiting
		good := true
		for _, dep := range g[key] {
			if !visit(dep) {
				good = false
			}
		}
		if good {
			state[key] = ok
		} else {
			state[key] = bad
		}
		return good
	}

	out := Vocabulary{}
	var dropped []string
	for _, n := range v.Nodes {
		if visit(nodeKey(n.Type)) {
			out.Nodes = append(out.Nodes, n)
		} else {
			dropped = append(dropped, "node "+n.Text)
		}
	}
	for _, r := range v.Relations {
		if visit(relationKey(r.Label)) {
			out.Relations = append(out.Relations, r)
		} else {
			dropped = append(dropped, "relation "+r.Label)
		}
	}
	return out, dropped
}

func nodeKey(t string) string     { return "node:" + strings.ToLower(t) }
func relationKey(l string) string { return "relation:" + strings.ToLower(l) }

func (v Vocabulary) dependencyGraph() map[string][]string {
	g := make(map[string][]string)

	// Complements resolve to the same relation declaration.
	labelOwners := make(map[string][]string)
	for _, r := range v.Relations {
		key := relationKey(r.Label)
		labelOwners[strings.ToLower(r.Label)] = append(labelOwners[strings.ToLower(r.Label)], key)
		if r.Complement != "" {
			labelOwners[strings.ToLower(r.Complement)] = append(labelOwners[strings.ToLower(r.Complement)], key)
		}
	}

	depsForUse := func(relation, target string) []string {
		rel := strings.ToLower(strings.TrimSpace(relation))
		if rel == isA {
			if n, ok := v.FindNode(target); ok {
				return []string{nodeKey(n.Type)}
			}
			return nil
		}
		return labelOwners[rel]
	}

	for _, n := range v.Nodes {
		key := nodeKey(n.Type)
		condition.Walk(n.Specification, func(c condition.Condition) bool {
			switch c := c.(type) {
			case condition.Clause:
				g[key] = append(g[key], depsForUse(c.Relation, c.Target)...)
			case condition.NegatedClause:
				g[key] = append(g[key], depsForUse(c.Relation, c.Target)...)
			}
			return true
		})
	}

	for _, r := range v.Relations {
		key := relationKey(r.Label)
		for _, declared := range []string{r.Source, r.Destination} {
			if n, ok := v.FindNode(declared); ok {
				g[key] = append(g[key], nodeKey(n.Type))
			}
		}
		for _, t := range r.Triples {
			if isRole(t.Target) {
				continue
			}
			g[key] = append(g[key], depsForUse(t.Relation, t.Target)...)
		}
	}
	return g
}

// IsRole reports whether a triple target names the source or destination operand.
func IsRole(target string) bool { return isRole(target) }

func isRole(target string) bool {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case RoleSource, RoleDestination, RoleTarget:
		return true
	}
	return false
}
