package results

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func row(kv ...interface{}) Row {
	r := NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func texts(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		v, _ := r.Get("text")
		out[i] = v.(string)
	}
	return out
}

func TestRowJSONKeepsOrder(t *testing.T) {
	r := row("text", "A", "uid", "u1", "Created", 3.0)
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"text":"A","uid":"u1","Created":3}` {
		t.Fatalf("MarshalJSON = %s", b)
	}

	var back Row
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Keys(), []string{"text", "uid", "Created"}) {
		t.Fatalf("keys = %v", back.Keys())
	}
	if v, _ := back.Get("Created"); v != 3.0 {
		t.Fatalf("Created = %#v", v)
	}
}

func TestVisibleKeys(t *testing.T) {
	r := row("text", "A", "uid", "u1", "Page", "P", "Page-uid", "p1", "Page-display", "x", "Page-action", "open")
	if got := r.VisibleKeys(); !reflect.DeepEqual(got, []string{"text", "Page"}) {
		t.Fatalf("VisibleKeys = %v", got)
	}
}

func TestFilters(t *testing.T) {
	day := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		row("text", "a", "Tag", "[[Alpha]]", "Day", day),
		row("text", "b", "Tag", "#Beta", "Day", day.AddDate(0, 0, 1)),
		row("text", "c", "Tag", "Gamma", "Day", day),
	}

	out := Process(rows, Settings{Filters: map[string]Filter{"Tag": {Includes: []string{"Alpha", "Beta"}}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("includes: %v", got)
	}

	out = Process(rows, Settings{Filters: map[string]Filter{"Tag": {Excludes: []string{"[[Gamma]]"}}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("excludes: %v", got)
	}

	out = Process(rows, Settings{Filters: map[string]Filter{"Day": {Includes: []string{"October 19th, 2026"}}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("date includes: %v", got)
	}

	out = Process(rows, Settings{Filters: map[string]Filter{"Tag": {Includes: []string{"Alpha"}, Excludes: []string{"Alpha"}}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("includes should win over excludes: %v", got)
	}
}

func TestSearchSkipsUIDColumns(t *testing.T) {
	rows := []Row{
		row("text", "hello world", "uid", "match-me"),
		row("text", "other", "uid", "x", "Page", "World Tour", "Page-uid", "world"),
		row("text", "nothing", "uid", "world"),
	}
	out := Process(rows, Settings{Search: "WORLD"})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"hello world", "other"}) {
		t.Fatalf("search: %v", got)
	}
}

func TestSortCoercion(t *testing.T) {
	rows := []Row{
		row("text", "ten", "n", "10"),
		row("text", "two", "n", "2"),
		row("text", "nil", "n", nil),
		row("text", "onehalf", "n", "1.5"),
	}
	out := Process(rows, Settings{Sorts: []Sort{{Key: "n"}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"nil", "onehalf", "two", "ten"}) {
		t.Fatalf("numeric sort: %v", got)
	}

	dated := []Row{
		row("text", "b", "d", "February 1st, 2026"),
		row("text", "a", "d", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)),
		row("text", "c", "d", "2026-03-01"),
	}
	out = Process(dated, Settings{Sorts: []Sort{{Key: "d", Descending: true}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Fatalf("date sort: %v", got)
	}

	words := []Row{
		row("text", "banana"),
		row("text", "Apple"),
		row("text", "cherry"),
	}
	out = Process(words, Settings{Sorts: []Sort{{Key: "text"}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"Apple", "banana", "cherry"}) {
		t.Fatalf("collated sort: %v", got)
	}
}

func TestSortStability(t *testing.T) {
	rows := []Row{
		row("text", "a", "k1", "x", "k2", "2"),
		row("text", "b", "k1", "x", "k2", "1"),
		row("text", "c", "k1", "w", "k2", "9"),
		row("text", "d", "k1", "x", "k2", "1"),
	}
	out := Process(rows, Settings{Sorts: []Sort{{Key: "k1"}, {Key: "k2"}}})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"c", "b", "d", "a"}) {
		t.Fatalf("multi-key sort: %v", got)
	}

	out = Process(rows, Settings{})
	if got := texts(out.All); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("no sort keys should keep input order: %v", got)
	}
}

func TestPagination(t *testing.T) {
	var rows []Row
	for i := 0; i < 23; i++ {
		rows = append(rows, row("text", string(rune('a'+i))))
	}
	for _, p := range []int{1, 5, 10, 23, 30} {
		for k := -1; k <= 6; k++ {
			out := Process(rows, Settings{PageSize: p, Page: k})
			want := len(out.All) - p*(k-1)
			if want < 0 {
				want = 0
			}
			if want > p {
				want = p
			}
			if len(out.Page) != want {
				t.Fatalf("pageSize=%d page=%d: got %d rows, want %d", p, k, len(out.Page), want)
			}
		}
	}

	out := Process(rows, Settings{PageSize: 5, Page: 2})
	if got := texts(out.Page); !reflect.DeepEqual(got, []string{"f", "g", "h", "i", "j"}) {
		t.Fatalf("page 2 = %v", got)
	}
	if len(Process(rows, Settings{}).Page) != 23 {
		t.Fatalf("zero page size should return every row")
	}
}

func TestRandomSampleBeforePaging(t *testing.T) {
	var rows []Row
	for i := 0; i < 20; i++ {
		rows = append(rows, row("text", string(rune('a'+i))))
	}
	out := Process(rows, Settings{Random: 7, PageSize: 5, Page: 2, Rand: rand.New(rand.NewSource(1))})
	if len(out.All) != 7 {
		t.Fatalf("sample size = %d", len(out.All))
	}
	if len(out.Page) != 2 {
		t.Fatalf("second page of a 7-row sample should hold 2 rows, got %d", len(out.Page))
	}

	again := Process(rows, Settings{Random: 7, Rand: rand.New(rand.NewSource(1))})
	if !reflect.DeepEqual(texts(out.All), texts(again.All)) {
		t.Fatalf("same seed should sample the same rows")
	}
	if got := texts(rows[:3]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("input rows were modified: %v", got)
	}
}
