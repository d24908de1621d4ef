package query

import (
	"reflect"
	"strings"
	"testing"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/vocab"
)

func TestResolveRelationGolden(t *testing.T) {
	idx := fakeIndex{byUID: map[string]Entity{
		"abc123xyz": {UID: "abc123xyz", Title: "[[CLM]] - Sky is blue"},
	}}
	r := starterRegistry(t, WithEntityIndex(idx))
	g := newGolden(t)

	tests := []struct {
		name                  string
		label, source, target string
	}{
		{"relation_informs", "Informs", "ev", "q"},
		{"relation_supported_by_identifier", "Supported By", "abc123xyz", "ev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := datalog.RenderAll(r.ResolveRelation(tt.label, tt.source, tt.target, "c1"))
			g.Assert(t, tt.name, []byte(got+"\n"))
		})
	}
}

func TestResolveRelationComplementSymmetry(t *testing.T) {
	r := starterRegistry(t)
	for _, rel := range r.Vocabulary().Relations {
		t.Run(rel.Label, func(t *testing.T) {
			forward := datalog.RenderAll(r.ResolveRelation(rel.Label, "a", "b", "c1"))
			backward := datalog.RenderAll(r.ResolveRelation(rel.Complement, "b", "a", "c1"))
			if forward == "" {
				t.Fatal("forward relation compiled to nothing")
			}
			id := slugPart(rel.ID)
			normalized := strings.ReplaceAll(backward, id+"-c1-rev-0-", id+"-c1-0-")
			if normalized != forward {
				t.Errorf("complement differs:\nforward\n%s\nbackward\n%s", forward, backward)
			}
		})
	}
}

func TestResolveRelationTypedOperands(t *testing.T) {
	idx := fakeIndex{byTitle: map[string]Entity{"Claim": {UID: "p1", Title: "Claim"}}}
	r := starterRegistry(t, WithEntityIndex(idx))

	if got := r.ResolveRelation("Supports", "Claim", "c", "c1"); got != nil {
		t.Errorf("page title of the wrong type should not match:\n%s", datalog.RenderAll(got))
	}
	if got := r.ResolveRelation("Informs", "Question", "q", "c1"); got != nil {
		t.Errorf("type name of the wrong type should not match:\n%s", datalog.RenderAll(got))
	}

	got := r.ResolveRelation("Informs", "Evidence", "q", "c1")
	if len(got) == 0 {
		t.Fatal("type name operand produced no clauses")
	}
	want := datalog.Pattern("informs-c1-0-Page", ":node/title", datalog.Var("informs-c1-0-Page-Title"))
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("first clause = %s, want %s", datalog.Render(got[0]), datalog.Render(want))
	}
}

func TestResolveRelationMultipleDeclarations(t *testing.T) {
	v := vocab.Merge(vocab.Defaults(), vocab.Vocabulary{Relations: []vocab.Relation{
		{
			ID: "backs-a", Label: "Backs", Source: vocab.AnyType, Destination: vocab.AnyType,
			Triples: []vocab.Triple{{Source: "X", Relation: "is a", Target: vocab.RoleSource}, {Source: "X", Relation: "references", Target: "Y"}, {Source: "Y", Relation: "is a", Target: vocab.RoleDestination}},
		},
		{
			ID: "backs-b", Label: "Backs", Source: vocab.AnyType, Destination: vocab.AnyType,
			Triples: []vocab.Triple{{Source: "X", Relation: "is a", Target: vocab.RoleSource}, {Source: "Y", Relation: "references", Target: "X"}, {Source: "Y", Relation: "is a", Target: vocab.RoleDestination}},
		},
	}})
	r := NewRegistry(v)

	got := datalog.RenderAll(r.ResolveRelation("Backs", "a", "b", "c1"))
	want := "(or-join [?a ?b] (and [?a :block/refs ?b]) (and [?b :block/refs ?a]))"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestResolveRelationWildcard(t *testing.T) {
	r := starterRegistry(t)
	got := r.Translate(LabelAnyRelation, "a", "b", "c1")
	if len(got) != 1 {
		t.Fatalf("expected a single or-join, got %d clauses", len(got))
	}
	oj, ok := got[0].(datalog.OrJoinClause)
	if !ok {
		t.Fatalf("got %T", got[0])
	}
	if len(oj.Clauses) != 2*len(r.Vocabulary().Relations) {
		t.Errorf("branches = %d, want every relation in both directions", len(oj.Clauses))
	}
	if !reflect.DeepEqual(oj.Vars, []datalog.Variable{datalog.Var("a"), datalog.Var("b")}) {
		t.Errorf("join vars = %v", oj.Vars)
	}
}

func TestRelationTargetOptions(t *testing.T) {
	r := starterRegistry(t)
	tr, _, ok := r.Lookup("Informs")
	if !ok {
		t.Fatal("Informs not registered")
	}
	opts := tr.TargetOptions()
	if len(opts) == 0 || opts[0] != "Page" {
		t.Errorf("options = %v", opts)
	}
}
