// Package factstore persists an outline graph as datoms in SQLite and
// answers datalog programs against an in-memory snapshot of it.
package factstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/tree"
)

// Attributes of the outline schema.
const (
	AttrUID         = ":block/uid"
	AttrTitle       = ":node/title"
	AttrString      = ":block/string"
	AttrChildren    = ":block/children"
	AttrParents     = ":block/parents"
	AttrPage        = ":block/page"
	AttrRefs        = ":block/refs"
	AttrOrder       = ":block/order"
	AttrHeading     = ":block/heading"
	AttrCreateTime  = ":create/time"
	AttrEditTime    = ":edit/time"
	AttrCreateUser  = ":create/user"
	AttrEditUser    = ":edit/user"
	AttrDisplayName = ":user/display-name"
)

// manyAttrs hold several values per entity.
var manyAttrs = map[string]bool{
	AttrChildren: true,
	AttrParents:  true,
	AttrRefs:     true,
}

// ErrEntityNotFound is returned when a uid or title names no entity.
var ErrEntityNotFound = fmt.Errorf("entity not found: %w", tree.ErrNodeNotFound)

// CurrentDBVersion is the datom schema version.
const CurrentDBVersion = 1

// Store is the SQLite-backed fact store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
	user   string

	mu   sync.Mutex
	snap *snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for create and edit times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUser sets the display name recorded as author of tree edits.
func WithUser(name string) Option {
	return func(s *Store) { s.user = name }
}

// Open opens or creates the fact store of the graph rooted at graphPath.
func Open(graphPath string, opts ...Option) (*Store, error) {
	dir := filepath.Join(graphPath, ".discourse")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .discourse directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "graph.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db, opts)
}

// OpenInMemory opens an empty in-memory store.
func OpenInMemory(opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newStore(db, opts)
}

func newStore(db *sql.DB, opts []Option) (*Store, error) {
	s := &Store{db: db, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- One row per (entity, attribute, value). kind is string, int, ref or bool.
		CREATE TABLE IF NOT EXISTS datoms (
			e INTEGER NOT NULL,
			a TEXT NOT NULL,
			v TEXT NOT NULL,
			kind TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_datoms_e ON datoms(e);
		CREATE INDEX IF NOT EXISTS idx_datoms_av ON datoms(a, v);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'version'").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec("INSERT INTO meta (key, value) VALUES ('version', ?)", strconv.Itoa(CurrentDBVersion))
		return err
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != strconv.Itoa(CurrentDBVersion) {
		return fmt.Errorf("graph database version %s is not supported (want %d)", version, CurrentDBVersion)
	}
	return nil
}

// Query evaluates q against the current snapshot. inputs bind q.In in order.
func (s *Store) Query(ctx context.Context, q *datalog.Query, inputs ...interface{}) ([][]interface{}, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.query(ctx, q, inputs)
}

func (s *Store) snapshot(ctx context.Context) (*snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap, nil
	}
	snap, err := loadSnapshot(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	s.logger.Debug("loaded snapshot", zap.Int("datoms", snap.size))
	s.snap = snap
	return snap, nil
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// Stats summarizes the graph.
type Stats struct {
	Pages  int
	Blocks int
	Datoms int
}

// Stats counts pages, blocks and datoms.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM datoms WHERE a = ?),
			(SELECT COUNT(*) FROM datoms WHERE a = ?),
			(SELECT COUNT(*) FROM datoms)`, AttrTitle, AttrString)
	if err := row.Scan(&st.Pages, &st.Blocks, &st.Datoms); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Entity returns the entity with uid.
func (s *Store) Entity(ctx context.Context, uid string) (query.Entity, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return query.Entity{}, err
	}
	e, ok := snap.entityByUID(uid)
	if !ok {
		return query.Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, uid)
	}
	return e, nil
}

// EntityByUID implements query.EntityIndex.
func (s *Store) EntityByUID(uid string) (query.Entity, bool) {
	snap, err := s.snapshot(context.Background())
	if err != nil {
		s.logger.Warn("entity lookup failed", zap.Error(err))
		return query.Entity{}, false
	}
	return snap.entityByUID(uid)
}

// EntityByTitle implements query.EntityIndex.
func (s *Store) EntityByTitle(title string) (query.Entity, bool) {
	snap, err := s.snapshot(context.Background())
	if err != nil {
		s.logger.Warn("entity lookup failed", zap.Error(err))
		return query.Entity{}, false
	}
	return snap.entityByTitle(title)
}

// Titles implements query.EntityIndex.
func (s *Store) Titles() []string {
	snap, err := s.snapshot(context.Background())
	if err != nil {
		s.logger.Warn("title listing failed", zap.Error(err))
		return nil
	}
	return snap.titles()
}

var _ query.EntityIndex = (*Store)(nil)
var _ query.FactStore = (*Store)(nil)
