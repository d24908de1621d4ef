// Package audit keeps an append-only log of writes to a graph's fact store.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aidanlsb/discourse/internal/factstore"
)

// Operations recorded in the log.
const (
	OpImport = "import"
	OpCreate = "create"
	OpAppend = "append"
	OpSync   = "sync"
	OpRemove = "remove"
	OpStore  = "store"
)

// Entry is one logged write.
type Entry struct {
	Timestamp    time.Time `json:"ts"`
	Operation    string    `json:"op"`
	Source       string    `json:"source,omitempty"`
	Titles       []string  `json:"titles,omitempty"`
	Pages        int       `json:"pages,omitempty"`
	Blocks       int       `json:"blocks,omitempty"`
	Placeholders int       `json:"placeholders,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// maxTitles caps the titles kept per entry.
const maxTitles = 20

// Logger appends entries to .discourse/audit.log.
type Logger struct {
	path    string
	enabled bool
	now     func() time.Time
	mu      sync.Mutex
}

// New creates a logger for the graph at graphPath. A disabled logger
// records nothing.
func New(graphPath string, enabled bool) *Logger {
	if !enabled {
		return &Logger{enabled: false}
	}
	return &Logger{
		path:    filepath.Join(graphPath, ".discourse", "audit.log"),
		enabled: true,
		now:     time.Now,
	}
}

// Enabled reports whether entries are written.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Log appends entry as one JSON line.
func (l *Logger) Log(entry Entry) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	if len(entry.Titles) > maxTitles {
		entry.Titles = entry.Titles[:maxTitles]
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// LogWrite records a transaction of pages from source.
func (l *Logger) LogWrite(op, source string, pages []factstore.Page, report factstore.TxReport, writeErr error) error {
	entry := Entry{
		Operation:    op,
		Source:       source,
		Pages:        report.Pages,
		Blocks:       report.Blocks,
		Placeholders: report.Placeholders,
	}
	for _, p := range pages {
		entry.Titles = append(entry.Titles, p.Title)
	}
	if writeErr != nil {
		entry.Error = writeErr.Error()
	}
	return l.Log(entry)
}

// LogRemove records the removal of the page imported from source.
func (l *Logger) LogRemove(source string, err error) error {
	entry := Entry{Operation: OpRemove, Source: source}
	if err != nil {
		entry.Error = err.Error()
	}
	return l.Log(entry)
}

// LogTree records a rewrite of the settings tree under the page title.
func (l *Logger) LogTree(source, title string, err error) error {
	entry := Entry{Operation: OpStore, Source: source, Titles: []string{title}}
	if err != nil {
		entry.Error = err.Error()
	}
	return l.Log(entry)
}

// Read returns every entry, oldest first. Malformed lines are skipped.
func (l *Logger) Read() ([]Entry, error) {
	if !l.enabled {
		return nil, nil
	}
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}

// ReadSince returns entries at or after since.
func (l *Logger) ReadSince(since time.Time) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}
