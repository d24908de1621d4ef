package tree

import (
	"errors"
	"testing"
)

func TestMemTreeOrdering(t *testing.T) {
	mem := NewMemTree()
	root, err := mem.Create("", 0, "root")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = mem.Create(root, 0, "b")
	_, _ = mem.Create(root, 0, "a")
	_, _ = mem.Create(root, 99, "c")

	children, err := mem.Children(root)
	if err != nil {
		t.Fatal(err)
	}
	var texts []string
	for i, c := range children {
		if c.Order != i {
			t.Fatalf("child %d has order %d", i, c.Order)
		}
		texts = append(texts, c.Text)
	}
	if len(texts) != 3 || texts[0] != "a" || texts[1] != "b" || texts[2] != "c" {
		t.Fatalf("children = %v", texts)
	}
}

func TestChildByKeyAndSetValue(t *testing.T) {
	mem := NewMemTree()
	root, _ := mem.Create("", 0, "relation")
	src, _ := mem.Create(root, 0, "Source")
	_, _ = mem.Create(src, 0, "Evidence")

	n, ok, err := ChildByKey(mem, root, " source ")
	if err != nil || !ok || n.UID != src {
		t.Fatalf("ChildByKey = %#v, %v, %v", n, ok, err)
	}
	if v, _ := FirstChildText(mem, src); v != "Evidence" {
		t.Fatalf("FirstChildText = %q", v)
	}

	if err := SetValue(mem, src, "Claim"); err != nil {
		t.Fatal(err)
	}
	if v, _ := FirstChildText(mem, src); v != "Claim" {
		t.Fatalf("after SetValue = %q", v)
	}
}

func TestMemTreeDelete(t *testing.T) {
	mem := NewMemTree()
	root, _ := mem.Create("", 0, "root")
	child, _ := mem.Create(root, 0, "child")
	grand, _ := mem.Create(child, 0, "grandchild")

	if err := mem.Delete(child); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Children(grand); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("descendants should be deleted, got %v", err)
	}
	children, _ := mem.Children(root)
	if len(children) != 0 {
		t.Fatalf("expected no children, got %v", children)
	}
}

func TestOutline(t *testing.T) {
	mem := NewMemTree()
	root, _ := mem.Create("", 0, "root")
	a, _ := mem.Create(root, 0, "a")
	_, _ = mem.Create(a, 0, "b")

	got, err := Outline(mem, root)
	if err != nil {
		t.Fatal(err)
	}
	if want := "- a\n  - b\n"; got != want {
		t.Fatalf("Outline = %q, want %q", got, want)
	}
}
