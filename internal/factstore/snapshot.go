package factstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/query"
)

// eid is an entity id. Ref values are eids so they never compare equal to
// plain integers.
type eid int64

type datom struct {
	e eid
	a string
	v interface{}
}

// snapshot is an immutable in-memory copy of the datoms with the indexes the
// evaluator needs.
type snapshot struct {
	eav  map[eid]map[string][]interface{}
	aev  map[string][]datom
	avet map[string]map[interface{}][]eid
	size int
}

func newSnapshot() *snapshot {
	return &snapshot{
		eav:  make(map[eid]map[string][]interface{}),
		aev:  make(map[string][]datom),
		avet: make(map[string]map[interface{}][]eid),
	}
}

func loadSnapshot(ctx context.Context, db *sql.DB) (*snapshot, error) {
	rows, err := db.QueryContext(ctx, "SELECT e, a, v, kind FROM datoms ORDER BY e, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := newSnapshot()
	for rows.Next() {
		var (
			e       int64
			a, v, k string
		)
		if err := rows.Scan(&e, &a, &v, &k); err != nil {
			return nil, err
		}
		val, err := decodeValue(v, k)
		if err != nil {
			return nil, fmt.Errorf("datom %d %s: %w", e, a, err)
		}
		snap.add(eid(e), a, val)
	}
	return snap, rows.Err()
}

func (s *snapshot) add(e eid, a string, v interface{}) {
	attrs, ok := s.eav[e]
	if !ok {
		attrs = make(map[string][]interface{})
		s.eav[e] = attrs
	}
	attrs[a] = append(attrs[a], v)
	s.aev[a] = append(s.aev[a], datom{e: e, a: a, v: v})
	byValue, ok := s.avet[a]
	if !ok {
		byValue = make(map[interface{}][]eid)
		s.avet[a] = byValue
	}
	byValue[v] = append(byValue[v], e)
	s.size++
}

func encodeValue(v interface{}) (string, string) {
	switch v := v.(type) {
	case eid:
		return strconv.FormatInt(int64(v), 10), "ref"
	case int64:
		return strconv.FormatInt(v, 10), "int"
	case int:
		return strconv.Itoa(v), "int"
	case bool:
		return strconv.FormatBool(v), "bool"
	default:
		return fmt.Sprint(v), "string"
	}
}

func decodeValue(v, kind string) (interface{}, error) {
	switch kind {
	case "ref":
		n, err := strconv.ParseInt(v, 10, 64)
		return eid(n), err
	case "int":
		return strconv.ParseInt(v, 10, 64)
	case "bool":
		return strconv.ParseBool(v)
	case "string":
		return v, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", kind)
}

func (s *snapshot) first(e eid, a string) (interface{}, bool) {
	vals := s.eav[e][a]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (s *snapshot) str(e eid, a string) string {
	v, _ := s.first(e, a)
	str, _ := v.(string)
	return str
}

func (s *snapshot) lookup(a string, v interface{}) (eid, bool) {
	ents := s.avet[a][v]
	if len(ents) == 0 {
		return 0, false
	}
	return ents[0], true
}

func (s *snapshot) entity(e eid) query.Entity {
	return query.Entity{UID: s.str(e, AttrUID), Title: s.str(e, AttrTitle), Text: s.str(e, AttrString)}
}

func (s *snapshot) entityByUID(uid string) (query.Entity, bool) {
	e, ok := s.lookup(AttrUID, uid)
	if !ok {
		return query.Entity{}, false
	}
	return s.entity(e), true
}

func (s *snapshot) entityByTitle(title string) (query.Entity, bool) {
	e, ok := s.lookup(AttrTitle, title)
	if !ok {
		return query.Entity{}, false
	}
	return s.entity(e), true
}

func (s *snapshot) titles() []string {
	out := make([]string, 0, len(s.aev[AttrTitle]))
	for _, d := range s.aev[AttrTitle] {
		if t, ok := d.v.(string); ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// pull reads attrs of e into a map keyed by attribute. Many-valued
// attributes yield slices; refs yield nested maps when the pattern nests,
// otherwise {:db/id n}.
func (s *snapshot) pull(e eid, attrs []datalog.PullAttr) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for _, pa := range attrs {
		name := string(pa.Attr)
		if name == ":db/id" {
			out[name] = int64(e)
			continue
		}
		vals := s.eav[e][name]
		if len(vals) == 0 {
			continue
		}
		if manyAttrs[name] {
			list := make([]interface{}, len(vals))
			for i, v := range vals {
				list[i] = s.pullValue(v, pa.Nested)
			}
			out[name] = list
			continue
		}
		out[name] = s.pullValue(vals[0], pa.Nested)
	}
	return out
}

func (s *snapshot) pullValue(v interface{}, nested []datalog.PullAttr) interface{} {
	ref, ok := v.(eid)
	if !ok {
		return v
	}
	if len(nested) == 0 {
		return map[string]interface{}{":db/id": int64(ref)}
	}
	return s.pull(ref, nested)
}
