package audit

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aidanlsb/discourse/internal/factstore"
)

func TestLogAndRead(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, true)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	tick := base
	l.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	pages := []factstore.Page{{Title: "[[QUE]] - Why?"}, {Title: "[[CLM]] - Because"}}
	if err := l.LogWrite(OpImport, "export.json", pages, factstore.TxReport{Pages: 2, Blocks: 5}, nil); err != nil {
		t.Fatalf("LogWrite: %v", err)
	}
	if err := l.LogRemove("notes/why.md", errors.New("not found")); err != nil {
		t.Fatalf("LogRemove: %v", err)
	}

	entries, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Operation != OpImport || entries[0].Blocks != 5 || len(entries[0].Titles) != 2 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Operation != OpRemove || entries[1].Error != "not found" {
		t.Errorf("second entry = %+v", entries[1])
	}

	recent, err := l.ReadSince(base.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(recent) != 1 || recent[0].Operation != OpRemove {
		t.Errorf("ReadSince = %+v", recent)
	}
}

func TestReadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, true)
	if err := l.Log(Entry{Operation: OpAppend}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("not json\n\n")
	_ = f.Close()

	entries, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestDisabledLogger(t *testing.T) {
	l := New(t.TempDir(), false)
	if l.Enabled() {
		t.Fatal("expected disabled logger")
	}
	if err := l.Log(Entry{Operation: OpSync}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	entries, err := l.Read()
	if err != nil || entries != nil {
		t.Errorf("Read = %v, %v; want nil, nil", entries, err)
	}
}

func TestTitlesAreCapped(t *testing.T) {
	l := New(t.TempDir(), true)
	pages := make([]factstore.Page, maxTitles+5)
	for i := range pages {
		pages[i].Title = "p"
	}
	if err := l.LogWrite(OpImport, "dir", pages, factstore.TxReport{}, nil); err != nil {
		t.Fatal(err)
	}
	entries, _ := l.Read()
	if len(entries[0].Titles) != maxTitles {
		t.Errorf("titles = %d, want %d", len(entries[0].Titles), maxTitles)
	}
}
