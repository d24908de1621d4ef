package factstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/sqlutil"
	"github.com/aidanlsb/discourse/internal/wikilink"
)

// Block is one outline block to write.
type Block struct {
	UID        string    `json:"uid,omitempty"`
	String     string    `json:"string"`
	Heading    int       `json:"heading,omitempty"`
	Children   []Block   `json:"children,omitempty"`
	CreateTime time.Time `json:"create_time,omitempty"`
	EditTime   time.Time `json:"edit_time,omitempty"`
	Author     string    `json:"author,omitempty"`
}

// Page is a titled root with its block tree.
type Page struct {
	UID        string    `json:"uid,omitempty"`
	Title      string    `json:"title"`
	Children   []Block   `json:"children,omitempty"`
	CreateTime time.Time `json:"create_time,omitempty"`
	EditTime   time.Time `json:"edit_time,omitempty"`
	Author     string    `json:"author,omitempty"`
}

// TxReport counts what a transaction wrote.
type TxReport struct {
	Pages        int `json:"pages"`
	Blocks       int `json:"blocks"`
	Placeholders int `json:"placeholders"`
}

// NewUID returns a fresh nine-character block uid.
func NewUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Transact writes pages. A page whose title already exists replaces the old
// page's blocks and keeps its uid. Links in block text become :block/refs;
// linked titles without a page get an empty placeholder page.
func (s *Store) Transact(ctx context.Context, pages []Page) (TxReport, error) {
	var report TxReport
	err := s.write(ctx, func(w *writer) error {
		for _, p := range pages {
			if _, _, err := w.writePage(p, true); err != nil {
				return fmt.Errorf("page %q: %w", p.Title, err)
			}
		}
		return nil
	}, &report)
	if err != nil {
		return TxReport{}, err
	}
	s.logger.Info("transacted pages",
		zap.Int("pages", report.Pages), zap.Int("blocks", report.Blocks), zap.Int("placeholders", report.Placeholders))
	return report, nil
}

// Append adds each page's blocks after the existing children of the page
// with the same title, creating pages that do not exist yet. Unlike
// Transact it never removes content.
func (s *Store) Append(ctx context.Context, pages []Page) (TxReport, error) {
	var report TxReport
	err := s.write(ctx, func(w *writer) error {
		for _, p := range pages {
			page, exists, err := w.lookup(AttrTitle, strings.TrimSpace(p.Title))
			if err != nil {
				return err
			}
			if !exists {
				if page, _, err = w.writePage(Page{UID: p.UID, Title: p.Title, Author: p.Author}, false); err != nil {
					return fmt.Errorf("page %q: %w", p.Title, err)
				}
			}
			siblings, err := w.children(page)
			if err != nil {
				return err
			}
			for i, b := range p.Children {
				if _, _, err := w.writeBlock(b, page, page, []eid{page}, len(siblings)+i); err != nil {
					return fmt.Errorf("page %q: %w", p.Title, err)
				}
			}
		}
		return nil
	}, &report)
	if err != nil {
		return TxReport{}, err
	}
	s.logger.Info("appended blocks", zap.Int("pages", report.Pages), zap.Int("blocks", report.Blocks))
	return report, nil
}

// write runs fn in a transaction, resolves the refs it queued and drops the
// cached snapshot.
func (s *Store) write(ctx context.Context, fn func(w *writer) error, report *TxReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	w := &writer{db: tx, now: s.now(), users: make(map[string]eid)}
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(e), 0) FROM datoms").Scan(&w.last); err != nil {
		return fmt.Errorf("failed to allocate entity ids: %w", err)
	}
	if err := fn(w); err != nil {
		return err
	}
	if err := w.resolveRefs(); err != nil {
		return fmt.Errorf("failed to resolve references: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.invalidate()
	if report != nil {
		*report = w.report
	}
	return nil
}

type pendingRef struct {
	e    eid
	text string
}

// writer issues every datom statement of one write through db, which is
// the open transaction.
type writer struct {
	db     sqlutil.Queryer
	now    time.Time
	last   int64
	users  map[string]eid
	refs   []pendingRef
	report TxReport
}

func (w *writer) alloc() eid {
	w.last++
	return eid(w.last)
}

func (w *writer) put(e eid, a string, v interface{}) error {
	if t, ok := v.(time.Time); ok {
		v = millis(t)
	}
	val, kind := encodeValue(v)
	_, err := w.db.Exec("INSERT INTO datoms (e, a, v, kind) VALUES (?, ?, ?, ?)", int64(e), a, val, kind)
	return err
}

func (w *writer) retract(e eid, a string) error {
	_, err := w.db.Exec("DELETE FROM datoms WHERE e = ? AND a = ?", int64(e), a)
	return err
}

func (w *writer) lookup(a string, v interface{}) (eid, bool, error) {
	val, kind := encodeValue(v)
	var e int64
	err := w.db.QueryRow("SELECT e FROM datoms WHERE a = ? AND v = ? AND kind = ? ORDER BY rowid LIMIT 1", a, val, kind).Scan(&e)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return eid(e), true, nil
}

func (w *writer) has(e eid, a string) (bool, error) {
	var n int
	err := w.db.QueryRow("SELECT COUNT(*) FROM datoms WHERE e = ? AND a = ?", int64(e), a).Scan(&n)
	return n > 0, err
}

func (w *writer) refsOf(e eid, a string) ([]eid, error) {
	rows, err := w.db.Query("SELECT v FROM datoms WHERE e = ? AND a = ? AND kind = 'ref' ORDER BY rowid", int64(e), a)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, scanRef)
}

// referrers returns the entities whose a points at e.
func (w *writer) referrers(e eid, a string) ([]eid, error) {
	rows, err := w.db.Query("SELECT e FROM datoms WHERE a = ? AND v = ? AND kind = 'ref' ORDER BY rowid", a, strconv.FormatInt(int64(e), 10))
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, scanRef)
}

func scanRef(r *sql.Rows) (eid, error) {
	var v int64
	err := r.Scan(&v)
	return eid(v), err
}

func (w *writer) uid(e eid) (string, error) {
	var uid string
	err := w.db.QueryRow("SELECT v FROM datoms WHERE e = ? AND a = ? LIMIT 1", int64(e), AttrUID).Scan(&uid)
	return uid, err
}

type sibling struct {
	e     eid
	order int
}

func (w *writer) children(parent eid) ([]sibling, error) {
	kids, err := w.refsOf(parent, AttrChildren)
	if err != nil {
		return nil, err
	}
	out := make([]sibling, 0, len(kids))
	for _, k := range kids {
		var v string
		err := w.db.QueryRow("SELECT v FROM datoms WHERE e = ? AND a = ? LIMIT 1", int64(k), AttrOrder).Scan(&v)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		n, _ := strconv.Atoi(v)
		out = append(out, sibling{e: k, order: n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out, nil
}

func (w *writer) setOrder(e eid, order int) error {
	if err := w.retract(e, AttrOrder); err != nil {
		return err
	}
	return w.put(e, AttrOrder, int64(order))
}

// deleteEntities removes every datom of ids and every ref pointing at them.
func (w *writer) deleteEntities(ids []eid) error {
	if len(ids) == 0 {
		return nil
	}
	encoded := make([]string, len(ids))
	for i, id := range ids {
		encoded[i] = strconv.FormatInt(int64(id), 10)
	}
	ph, args := sqlutil.InClauseArgs(encoded)
	if _, err := w.db.Exec("DELETE FROM datoms WHERE e IN ("+ph+")", args...); err != nil {
		return err
	}
	_, err := w.db.Exec("DELETE FROM datoms WHERE kind = 'ref' AND v IN ("+ph+")", args...)
	return err
}

func (w *writer) claimUID(uid string, owner eid) (string, error) {
	if uid == "" {
		return NewUID(), nil
	}
	e, ok, err := w.lookup(AttrUID, uid)
	if err != nil {
		return "", err
	}
	if ok && e != owner {
		return "", fmt.Errorf("uid %q is already in use", uid)
	}
	return uid, nil
}

// writePage writes p. With replace false an existing title is an error.
func (w *writer) writePage(p Page, replace bool) (eid, string, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return 0, "", errors.New("page title is required")
	}

	e, exists, err := w.lookup(AttrTitle, title)
	if err != nil {
		return 0, "", err
	}
	uid := p.UID
	if exists {
		if !replace {
			return 0, "", fmt.Errorf("page %q already exists", title)
		}
		if uid == "" {
			if uid, err = w.uid(e); err != nil {
				return 0, "", err
			}
		}
		blocks, err := w.referrers(e, AttrPage)
		if err != nil {
			return 0, "", err
		}
		if err := w.deleteEntities(blocks); err != nil {
			return 0, "", err
		}
		// Incoming refs to the page itself survive the rewrite.
		if _, err := w.db.Exec("DELETE FROM datoms WHERE e = ?", int64(e)); err != nil {
			return 0, "", err
		}
	} else {
		e = w.alloc()
	}
	if uid, err = w.claimUID(uid, e); err != nil {
		return 0, "", err
	}

	if err := w.put(e, AttrUID, uid); err != nil {
		return 0, "", err
	}
	if err := w.put(e, AttrTitle, title); err != nil {
		return 0, "", err
	}
	if err := w.putMeta(e, p.CreateTime, p.EditTime, p.Author); err != nil {
		return 0, "", err
	}
	for i, b := range p.Children {
		if _, _, err := w.writeBlock(b, e, e, []eid{e}, i); err != nil {
			return 0, "", err
		}
	}
	w.report.Pages++
	return e, uid, nil
}

func (w *writer) writeBlock(b Block, page, parent eid, ancestors []eid, order int) (eid, string, error) {
	e := w.alloc()
	uid, err := w.claimUID(b.UID, e)
	if err != nil {
		return 0, "", err
	}

	puts := []struct {
		a string
		v interface{}
	}{
		{AttrUID, uid},
		{AttrString, b.String},
		{AttrOrder, int64(order)},
		{AttrPage, page},
	}
	for _, anc := range ancestors {
		puts = append(puts, struct {
			a string
			v interface{}
		}{AttrParents, anc})
	}
	if b.Heading > 0 {
		puts = append(puts, struct {
			a string
			v interface{}
		}{AttrHeading, int64(b.Heading)})
	}
	for _, p := range puts {
		if err := w.put(e, p.a, p.v); err != nil {
			return 0, "", err
		}
	}
	if err := w.putMeta(e, b.CreateTime, b.EditTime, b.Author); err != nil {
		return 0, "", err
	}
	if err := w.put(parent, AttrChildren, e); err != nil {
		return 0, "", err
	}
	w.refs = append(w.refs, pendingRef{e: e, text: b.String})
	w.report.Blocks++

	path := append(append([]eid(nil), ancestors...), e)
	for i, c := range b.Children {
		if _, _, err := w.writeBlock(c, page, e, path, i); err != nil {
			return 0, "", err
		}
	}
	return e, uid, nil
}

func (w *writer) putMeta(e eid, created, edited time.Time, author string) error {
	if created.IsZero() {
		created = w.now
	}
	if edited.IsZero() {
		edited = created
	}
	if err := w.put(e, AttrCreateTime, created); err != nil {
		return err
	}
	if err := w.put(e, AttrEditTime, edited); err != nil {
		return err
	}
	if author == "" {
		return nil
	}
	u, err := w.user(author)
	if err != nil {
		return err
	}
	if err := w.put(e, AttrCreateUser, u); err != nil {
		return err
	}
	return w.put(e, AttrEditUser, u)
}

func (w *writer) user(name string) (eid, error) {
	if u, ok := w.users[name]; ok {
		return u, nil
	}
	u, ok, err := w.lookup(AttrDisplayName, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		u = w.alloc()
		if err := w.put(u, AttrDisplayName, name); err != nil {
			return 0, err
		}
	}
	w.users[name] = u
	return u, nil
}

// resolveRefs turns the links of every written block into :block/refs.
func (w *writer) resolveRefs() error {
	for _, pr := range w.refs {
		seen := make(map[eid]bool)
		for _, title := range wikilink.PageTargets(pr.text) {
			t, ok, err := w.lookup(AttrTitle, title)
			if err != nil {
				return err
			}
			if !ok {
				t = w.alloc()
				if err := w.put(t, AttrUID, NewUID()); err != nil {
					return err
				}
				if err := w.put(t, AttrTitle, title); err != nil {
					return err
				}
				if err := w.putMeta(t, time.Time{}, time.Time{}, ""); err != nil {
					return err
				}
				w.report.Placeholders++
			}
			if !seen[t] {
				seen[t] = true
				if err := w.put(pr.e, AttrRefs, t); err != nil {
					return err
				}
			}
		}
		for _, uid := range wikilink.BlockTargets(pr.text) {
			b, ok, err := w.lookup(AttrUID, uid)
			if err != nil {
				return err
			}
			if ok && !seen[b] {
				seen[b] = true
				if err := w.put(pr.e, AttrRefs, b); err != nil {
					return err
				}
			}
		}
	}
	w.refs = nil
	return nil
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
