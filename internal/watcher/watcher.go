// Package watcher keeps a graph in sync with a directory of markdown files.
// Each file is one page; saving a file re-imports it and deleting it removes
// the page.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/importer"
	"github.com/aidanlsb/discourse/internal/query"
)

// Graph is the part of the fact store the watcher writes to.
type Graph interface {
	Transact(ctx context.Context, pages []factstore.Page) (factstore.TxReport, error)
	EntityByTitle(title string) (query.Entity, bool)
	Delete(uid string) error
}

// Config configures a Watcher.
type Config struct {
	Dir           string
	Graph         Graph
	Logger        *zap.Logger
	DebounceDelay time.Duration // default 100ms
	// OnSync is called after each file is imported or removed.
	OnSync func(path string, err error)
}

// Watcher re-imports markdown files as they change.
type Watcher struct {
	dir      string
	graph    Graph
	logger   *zap.Logger
	debounce time.Duration
	onSync   func(path string, err error)

	fs      *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time
}

// New validates cfg and creates a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if cfg.Graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	w := &Watcher{
		dir:      cfg.Dir,
		graph:    cfg.Graph,
		logger:   cfg.Logger,
		debounce: cfg.DebounceDelay,
		onSync:   cfg.OnSync,
		pending:  make(map[string]time.Time),
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.debounce == 0 {
		w.debounce = 100 * time.Millisecond
	}
	return w, nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	var err error
	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fs.Close()

	if err := w.addRecursive(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching", zap.String("dir", w.dir))

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.flush(ctx)
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// SyncFile imports one markdown file, replacing the page with its title.
func (w *Watcher) SyncFile(ctx context.Context, path string) error {
	page, err := importer.ReadMarkdownFile(path)
	if err != nil {
		return err
	}
	_, err = w.graph.Transact(ctx, []factstore.Page{page})
	return err
}

// RemoveFile deletes the page a removed file held. A page that is already
// gone is not an error.
func (w *Watcher) RemoveFile(path string) error {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	e, ok := w.graph.EntityByTitle(title)
	if !ok {
		return nil
	}
	return w.graph.Delete(e.UID)
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	if ignored(w.dir, path) {
		return
	}
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				_ = w.addRecursive(path)
			}
		}
		return
	}

	w.logger.Debug("file event", zap.String("op", event.Op.String()), zap.String("path", path))
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.mu.Lock()
		w.pending[path] = time.Now()
		w.mu.Unlock()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.report(path, w.RemoveFile(path))
	}
}

// flush imports files whose last event is older than the debounce delay.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.report(path, w.SyncFile(ctx, path))
	}
}

func (w *Watcher) report(path string, err error) {
	if err != nil {
		w.logger.Warn("sync failed", zap.String("path", path), zap.Error(err))
	} else {
		w.logger.Info("synced", zap.String("path", path))
	}
	if w.onSync != nil {
		w.onSync(path, err)
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// ignored reports whether path sits under a dot directory of root, such as
// .discourse or .git.
func ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
