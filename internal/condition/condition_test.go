package condition

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/tree"
)

func sampleList() List {
	return List{
		Clause{Source: "node", Relation: "is a", Target: "Claim", UID: "c1"},
		NegatedClause{Source: "node", Relation: "references", Target: "Draft", UID: "c2"},
		Or{UID: "c3", Branches: [][]Condition{
			{Clause{Source: "node", Relation: "has title", Target: "/^A/", UID: "c3.1.1"}},
			{
				Clause{Source: "node", Relation: "Supported By", Target: "ev", UID: "c3.2.1"},
				Clause{Source: "ev", Relation: "created by", Target: "Ada", UID: "c3.2.2"},
			},
		}},
		NegatedOr{UID: "c4", Branches: [][]Condition{
			{Clause{Source: "node", Relation: "with text", Target: "todo", UID: "c4.1.1"}},
		}},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleList()); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dup := List{
		Clause{Source: "a", Relation: "self", Target: "a", UID: "x"},
		Or{UID: "y", Branches: [][]Condition{{Clause{Source: "a", Relation: "self", Target: "a", UID: "x"}}}},
	}
	if err := Validate(dup); !errors.Is(err, ErrDuplicateUID) {
		t.Fatalf("expected ErrDuplicateUID, got %v", err)
	}
}

func TestAssignUIDs(t *testing.T) {
	got := AssignUIDs([]Condition{
		Clause{Source: "a", Relation: "self", Target: "a"},
		Or{Branches: [][]Condition{{Clause{Source: "a", Relation: "self", Target: "a"}}}},
	})
	if got[0].ID() != "c1" || got[1].ID() != "c2" {
		t.Fatalf("unexpected uids: %q %q", got[0].ID(), got[1].ID())
	}
	inner := got[1].(Or).Branches[0][0]
	if inner.ID() != "c2.1.1" {
		t.Fatalf("branch uid = %q", inner.ID())
	}
	if err := Validate(got); err != nil {
		t.Fatalf("assigned uids should be unique: %v", err)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	src := `
- source: node
  relation: is a
  target: Claim
- type: not
  source: node
  relation: references
  target: Draft
- type: or
  branches:
    - - source: node
        relation: has title
        target: /^A/
    - - source: node
        relation: Supported By
        target: ev
- not: true
  branches:
    - - source: node
        relation: with text
        target: todo
`
	var l List
	if err := yaml.Unmarshal([]byte(src), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(l) != 4 {
		t.Fatalf("expected 4 conditions, got %d", len(l))
	}
	if _, ok := l[1].(NegatedClause); !ok {
		t.Fatalf("expected NegatedClause, got %T", l[1])
	}
	if or, ok := l[2].(Or); !ok || len(or.Branches) != 2 {
		t.Fatalf("expected Or with two branches, got %#v", l[2])
	}
	if _, ok := l[3].(NegatedOr); !ok {
		t.Fatalf("expected NegatedOr, got %T", l[3])
	}

	out, err := yaml.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again List
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if !reflect.DeepEqual(l, again) {
		t.Fatalf("YAML round trip changed the list:\n%#v\n%#v", l, again)
	}
}

func TestJSONRejectsUnknownType(t *testing.T) {
	var l List
	err := json.Unmarshal([]byte(`[{"type":"xor","source":"a"}]`), &l)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestParseClause(t *testing.T) {
	c, err := ParseClause("node | has title | {date}")
	if err != nil {
		t.Fatalf("ParseClause: %v", err)
	}
	if c != (Clause{Source: "node", Relation: "has title", Target: "{date}"}) {
		t.Fatalf("unexpected clause %#v", c)
	}

	n, err := ParseClause("not node | references | x")
	if err != nil {
		t.Fatalf("ParseClause: %v", err)
	}
	if _, ok := n.(NegatedClause); !ok {
		t.Fatalf("expected NegatedClause, got %T", n)
	}

	if _, err := ParseClause("node has title"); err == nil {
		t.Fatalf("expected error without separators")
	}
}

func TestParseSelection(t *testing.T) {
	if s := ParseSelection("created date AS Created"); s.Text != "created date" || s.Label != "Created" {
		t.Fatalf("unexpected selection %#v", s)
	}
	if s := ParseSelection("page"); s.Text != "page" || s.Label != "page" {
		t.Fatalf("unexpected selection %#v", s)
	}
}

func TestTreeRoundTrip(t *testing.T) {
	mem := tree.NewMemTree()
	root, err := mem.Create("", 0, "query")
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteTree(mem, root, sampleList()); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	got, err := ReadTree(mem, root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 conditions, got %d", len(got))
	}

	first := got[0].(Clause)
	if first.Source != "node" || first.Relation != "is a" || first.Target != "Claim" {
		t.Fatalf("unexpected first clause %#v", first)
	}
	if _, ok := got[1].(NegatedClause); !ok {
		t.Fatalf("expected NegatedClause, got %T", got[1])
	}
	or := got[2].(Or)
	if len(or.Branches) != 2 || len(or.Branches[1]) != 2 {
		t.Fatalf("unexpected or branches %#v", or.Branches)
	}
	if or.Branches[1][1].(Clause).Target != "Ada" {
		t.Fatalf("nested clause lost: %#v", or.Branches[1][1])
	}
	if _, ok := got[3].(NegatedOr); !ok {
		t.Fatalf("expected NegatedOr, got %T", got[3])
	}
	if err := Validate(got); err != nil {
		t.Fatalf("tree uids should be unique: %v", err)
	}
}

func TestReadTreeNotFlag(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "query")
	clause, _ := mem.Create(root, 0, "clause")
	for i, kv := range [][2]string{{"Source", "node"}, {"Relation", "references"}, {"Target", "x"}} {
		k, _ := mem.Create(clause, i, kv[0])
		_, _ = mem.Create(k, 0, kv[1])
	}
	_, _ = mem.Create(clause, 3, "not")

	got, err := ReadTree(mem, root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	nc, ok := got[0].(NegatedClause)
	if !ok {
		t.Fatalf("expected not flag to negate, got %T", got[0])
	}
	if nc.Relation != "references" {
		t.Fatalf("keys should match case-insensitively, got %#v", nc)
	}
}

func TestSelectionsTree(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "selections")
	want := []Selection{{Text: "created date", Label: "Created"}, {Text: "page", Label: "Page"}}
	if err := WriteSelections(mem, root, want); err != nil {
		t.Fatalf("WriteSelections: %v", err)
	}
	got, err := ReadSelections(mem, root)
	if err != nil {
		t.Fatalf("ReadSelections: %v", err)
	}
	for i := range want {
		if got[i].Text != want[i].Text || got[i].Label != want[i].Label || got[i].UID == "" {
			t.Fatalf("selection %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestQueryTree(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "saved query")
	other, _ := mem.Create(root, 0, "notes")
	sels := []Selection{{Text: "created date", Label: "Created"}}

	if err := WriteQuery(mem, root, sampleList(), sels); err != nil {
		t.Fatalf("WriteQuery: %v", err)
	}
	// A second write replaces both parts in place.
	if err := WriteQuery(mem, root, sampleList()[:1], nil); err != nil {
		t.Fatalf("WriteQuery (second): %v", err)
	}

	children, _ := mem.Children(root)
	if len(children) != 3 || children[2].UID != other {
		t.Fatalf("unexpected children %#v", children)
	}
	conds, gotSels, err := ReadQuery(mem, root)
	if err != nil {
		t.Fatalf("ReadQuery: %v", err)
	}
	if len(conds) != 1 || len(gotSels) != 0 {
		t.Fatalf("got %d conditions and %d selections", len(conds), len(gotSels))
	}
}

func TestReadQueryWithoutKeys(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "query")
	if err := WriteTree(mem, root, sampleList()); err != nil {
		t.Fatal(err)
	}
	conds, sels, err := ReadQuery(mem, root)
	if err != nil {
		t.Fatalf("ReadQuery: %v", err)
	}
	if len(conds) != 4 || sels != nil {
		t.Fatalf("got %d conditions, selections %v", len(conds), sels)
	}
}
