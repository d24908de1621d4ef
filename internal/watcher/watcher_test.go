package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidanlsb/discourse/internal/factstore"
)

func newGraph(t *testing.T) *factstore.Store {
	t.Helper()
	s, err := factstore.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRequiresDirAndGraph(t *testing.T) {
	if _, err := New(Config{Graph: newGraph(t)}); err == nil {
		t.Fatal("expected error without dir")
	}
	if _, err := New(Config{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error without graph")
	}
}

func TestSyncAndRemoveFile(t *testing.T) {
	dir := t.TempDir()
	g := newGraph(t)
	w, err := New(Config{Dir: dir, Graph: g})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "Rayleigh scattering.md")
	if err := os.WriteFile(path, []byte("- short wavelengths\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.SyncFile(context.Background(), path); err != nil {
		t.Fatalf("SyncFile: %v", err)
	}
	e, ok := g.EntityByTitle("Rayleigh scattering")
	if !ok {
		t.Fatal("page was not imported")
	}
	children, err := g.Children(e.UID)
	if err != nil || len(children) != 1 || children[0].Text != "short wavelengths" {
		t.Fatalf("unexpected children %+v (err %v)", children, err)
	}

	if err := w.RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if _, ok := g.EntityByTitle("Rayleigh scattering"); ok {
		t.Fatal("page should be removed")
	}
	if err := w.RemoveFile(path); err != nil {
		t.Fatalf("removing a missing page should be a no-op, got %v", err)
	}
}

func TestIgnored(t *testing.T) {
	root := "/graph"
	tests := []struct {
		path string
		want bool
	}{
		{"/graph/note.md", false},
		{"/graph/sub/note.md", false},
		{"/graph/.discourse/graph.db", true},
		{"/graph/.git/sub/x.md", true},
	}
	for _, tt := range tests {
		if got := ignored(root, tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRunImportsWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	g := newGraph(t)
	synced := make(chan string, 4)
	w, err := New(Config{
		Dir:           dir,
		Graph:         g,
		DebounceDelay: 20 * time.Millisecond,
		OnSync: func(path string, err error) {
			if err != nil {
				return
			}
			select {
			case synced <- path:
			default:
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "Mie scattering.md")
	if err := os.WriteFile(path, []byte("- larger particles\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-synced:
		if got != path {
			t.Fatalf("synced %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was not synced")
	}
	if _, ok := g.EntityByTitle("Mie scattering"); !ok {
		t.Fatal("page missing after sync")
	}
}
