package vocab

import (
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/tree"
)

func TestFormatPattern(t *testing.T) {
	tests := []struct {
		format  string
		match   []string
		noMatch []string
	}{
		{
			format:  "[[CLM]] - {content}",
			match:   []string{"[[CLM]] - Coffee is good", "[[CLM]] - "},
			noMatch: []string{"[[EVD]] - Coffee is good", "x [[CLM]] - y"},
		},
		{
			format:  "@{content}",
			match:   []string{"@Smith 2020"},
			noMatch: []string{"Smith 2020"},
		},
		{
			format:  "{a}.{b}?",
			match:   []string{"x.y?"},
			noMatch: []string{"xzy?"},
		},
	}
	for _, tt := range tests {
		re := regexp.MustCompile(FormatPattern(tt.format))
		for _, s := range tt.match {
			if !re.MatchString(s) {
				t.Errorf("%q should match %q (pattern %s)", tt.format, s, re)
			}
		}
		for _, s := range tt.noMatch {
			if re.MatchString(s) {
				t.Errorf("%q should not match %q (pattern %s)", tt.format, s, re)
			}
		}
	}
}

func TestFillFormat(t *testing.T) {
	if got := FillFormat("[[CLM]] - {content}", "Hello"); got != "[[CLM]] - Hello" {
		t.Fatalf("FillFormat = %q", got)
	}
	if got := FillFormat("", "Hello"); got != "Hello" {
		t.Fatalf("FillFormat without format = %q", got)
	}
}

func TestTripleYAML(t *testing.T) {
	src := `
id: supports
label: Supports
complement: Supported By
source: evidence
destination: claim
triples:
  - [Page, is a, source]
  - source: Block
    relation: references
    target: Page
`
	var r Relation
	if err := yaml.Unmarshal([]byte(src), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(r.Triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(r.Triples))
	}
	if r.Triples[0] != (Triple{"Page", "is a", "source"}) || r.Triples[1] != (Triple{"Block", "references", "Page"}) {
		t.Fatalf("unexpected triples %#v", r.Triples)
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "[Page, is a, source]") {
		t.Fatalf("expected flow-style triple, got:\n%s", out)
	}

	var bad Relation
	if err := yaml.Unmarshal([]byte("triples:\n  - [a, b]\n"), &bad); err == nil {
		t.Fatalf("expected error for short triple")
	}
}

func TestMergeAndFindNode(t *testing.T) {
	v := Merge(Defaults(), Starter())
	if _, ok := v.FindNode("page"); !ok {
		t.Fatalf("default Page missing")
	}
	n, ok := v.FindNode("claim")
	if !ok || n.Text != "Claim" {
		t.Fatalf("FindNode(claim) = %#v, %v", n, ok)
	}
	if n, ok := v.FindNode("EVIDENCE"); !ok || n.Type != "evidence" {
		t.Fatalf("FindNode should ignore case, got %#v", n)
	}
	if errs := v.Validate(); len(errs) != 0 {
		t.Fatalf("starter vocabulary should validate: %v", errs)
	}

	override := Merge(Defaults(), Vocabulary{Nodes: []Node{{Type: "page", Text: "Doc", Format: "{content}"}}})
	if n, _ := override.FindNode("page"); n.Text != "Doc" {
		t.Fatalf("user node should replace default, got %#v", n)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	v := Vocabulary{
		Nodes: []Node{{Type: "a", Text: "A"}},
		Relations: []Relation{
			{Label: "links", Source: "a", Destination: "missing"},
		},
	}
	errs := v.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
}

func TestAcyclicDropsCycles(t *testing.T) {
	v := Vocabulary{
		Nodes: []Node{
			{Type: "claim", Text: "Claim", Format: "[[CLM]] - {content}"},
			{Type: "loop", Text: "Loop", Specification: condition.List{
				condition.Clause{Source: "Loop", Relation: "Loops", Target: "x"},
			}},
		},
		Relations: []Relation{
			{Label: "Supports", Complement: "Supported By", Source: "claim", Destination: "claim",
				Triples: []Triple{{"Page", "is a", "source"}, {"Page", "references", "Other"}, {"Other", "is a", "destination"}}},
			{Label: "Loops", Complement: "Looped By", Source: "loop", Destination: "*",
				Triples: []Triple{{"A", "is a", "source"}, {"A", "references", "B"}}},
			{Label: "Uses Loop", Source: "claim", Destination: "*",
				Triples: []Triple{{"A", "is a", "source"}, {"A", "Looped By", "B"}}},
		},
	}
	got, dropped := v.Acyclic()
	if len(got.Nodes) != 1 || got.Nodes[0].Type != "claim" {
		t.Fatalf("expected only claim to survive, got %#v", got.Nodes)
	}
	if len(got.Relations) != 1 || got.Relations[0].Label != "Supports" {
		t.Fatalf("expected only Supports to survive, got %#v", got.Relations)
	}
	if len(dropped) != 3 {
		t.Fatalf("expected 3 dropped entries, got %v", dropped)
	}
}

func TestTreeDeclarations(t *testing.T) {
	mem := tree.NewMemTree()
	nodesRoot, _ := mem.Create("", 0, "nodes")
	relsRoot, _ := mem.Create("", 1, "relations")

	starter := Starter()
	for i, n := range starter.Nodes {
		if _, err := WriteNode(mem, nodesRoot, i, n); err != nil {
			t.Fatal(err)
		}
	}
	for i, r := range starter.Relations {
		if _, err := WriteRelation(mem, relsRoot, i, r); err != nil {
			t.Fatal(err)
		}
	}
	// Presentation metadata is ignored.
	rels, _ := mem.Children(relsRoot)
	ifNode, _, _ := tree.ChildByKey(mem, rels[0].UID, "If")
	groups, _ := mem.Children(ifNode.UID)
	_, _ = mem.Create(groups[0].UID, 99, "node positions")

	nodes, err := ReadNodes(mem, nodesRoot)
	if err != nil {
		t.Fatalf("ReadNodes: %v", err)
	}
	if len(nodes) != 4 || nodes[1].Text != "Claim" || nodes[1].Format != "[[CLM]] - {content}" || nodes[1].Shortcut != "C" {
		t.Fatalf("unexpected nodes %#v", nodes)
	}

	relations, err := ReadRelations(mem, relsRoot)
	if err != nil {
		t.Fatalf("ReadRelations: %v", err)
	}
	if len(relations) != 3 {
		t.Fatalf("expected 3 relations, got %d", len(relations))
	}
	r := relations[0]
	if r.Label != "Informs" || r.Complement != "Informed By" || r.Source != "evidence" || r.Destination != "question" {
		t.Fatalf("unexpected relation %#v", r)
	}
	if len(r.Triples) != 4 || r.Triples[3] != (Triple{"ParentPage", "is a", "destination"}) {
		t.Fatalf("unexpected triples %#v", r.Triples)
	}
}

func TestTreeSpecification(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "nodes")
	page := Defaults().Nodes[0]
	if _, err := WriteNode(mem, root, 0, page); err != nil {
		t.Fatal(err)
	}
	nodes, err := ReadNodes(mem, root)
	if err != nil {
		t.Fatal(err)
	}
	if !nodes[0].HasSpecification() {
		t.Fatalf("specification lost: %#v", nodes[0])
	}
	c := nodes[0].Specification[0].(condition.Clause)
	if c.Relation != "has title" || c.Target != "/.+/" {
		t.Fatalf("unexpected specification clause %#v", c)
	}
}

func TestVocabularyRoundTrip(t *testing.T) {
	mem := tree.NewMemTree()
	root, _ := mem.Create("", 0, "grammar")

	in := Merge(Defaults(), Starter())
	if err := WriteVocabulary(mem, root, in); err != nil {
		t.Fatalf("WriteVocabulary: %v", err)
	}
	// Writing again replaces the previous declarations.
	if err := WriteVocabulary(mem, root, in); err != nil {
		t.Fatalf("WriteVocabulary (second): %v", err)
	}

	out, err := ReadVocabulary(mem, root)
	if err != nil {
		t.Fatalf("ReadVocabulary: %v", err)
	}
	if len(out.Nodes) != len(Starter().Nodes) {
		t.Fatalf("got %d nodes, want %d", len(out.Nodes), len(Starter().Nodes))
	}
	for i, n := range out.Nodes {
		want := Starter().Nodes[i]
		if n.Type != want.Type || n.Format != want.Format {
			t.Errorf("node %d = %s %q, want %s %q", i, n.Type, n.Format, want.Type, want.Format)
		}
	}
	if len(out.Nodes[1].Template) != 2 {
		t.Errorf("claim template lost: %#v", out.Nodes[1])
	}
	for i, r := range out.Relations {
		want := Starter().Relations[i]
		if r.Label != want.Label || r.Source != want.Source || r.Destination != want.Destination {
			t.Errorf("relation %d = %s %s->%s, want %s %s->%s",
				i, r.Label, r.Source, r.Destination, want.Label, want.Source, want.Destination)
		}
	}
	if errs := out.Validate(); len(errs) != 0 {
		t.Errorf("round-tripped vocabulary is invalid: %v", errs)
	}
}
