package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/results"
)

func resetQueryFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		queryWhere, querySelect, querySorts = nil, nil, nil
		queryReturn, querySearch = "", ""
		queryPage, queryPageSize, queryRandom = 0, 0, 0
		queryProgramOnly, queryList = false, false
		queryFrom, queryToPage = "", ""
	}
	reset()
	t.Cleanup(reset)
}

func TestParseSorts(t *testing.T) {
	tests := []struct {
		in      []string
		want    []results.Sort
		wantErr bool
	}{
		{in: nil, want: nil},
		{in: []string{"Created"}, want: []results.Sort{{Key: "Created"}}},
		{in: []string{"Created:desc", "text:asc"}, want: []results.Sort{{Key: "Created", Descending: true}, {Key: "text"}}},
		{in: []string{"Created:DESCENDING"}, want: []results.Sort{{Key: "Created", Descending: true}}},
		{in: []string{"Created:sideways"}, wantErr: true},
		{in: []string{":desc"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.in, ","), func(t *testing.T) {
			got, err := parseSorts(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSorts(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSorts(%q): %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSorts(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sort %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildQueryLayersFlagsOnSavedQuery(t *testing.T) {
	resetQueryFlags(t)
	prevCfg := cfg
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = prevCfg })

	settings := config.DefaultGraphConfig()
	saved := settings.Queries["claims"]
	savedConditions := len(saved.Conditions)

	queryWhere = []string{"node | references | [[Sky]]"}
	querySorts = []string{"text"}
	queryPage = 2

	q, err := buildQuery(settings, "claims")
	if err != nil {
		t.Fatalf("buildQuery: %v", err)
	}
	if len(q.Conditions) != savedConditions+1 {
		t.Fatalf("conditions = %d, want %d", len(q.Conditions), savedConditions+1)
	}
	if len(saved.Conditions) != savedConditions {
		t.Fatal("saved query was modified")
	}
	if q.Settings.Sorts[0].Key != "text" {
		t.Errorf("sort = %+v, want the flag to override", q.Settings.Sorts)
	}
	if q.Settings.Page != 2 {
		t.Errorf("page = %d, want 2", q.Settings.Page)
	}
	if q.Settings.PageSize != config.DefaultPageSize {
		t.Errorf("page size = %d, want default %d", q.Settings.PageSize, config.DefaultPageSize)
	}
	if len(q.Selections) != 1 || q.Selections[0].Label != "Created" {
		t.Errorf("selections = %+v", q.Selections)
	}
}

func TestBuildQueryErrors(t *testing.T) {
	resetQueryFlags(t)
	settings := config.DefaultGraphConfig()

	if _, err := buildQuery(settings, "missing"); err == nil {
		t.Fatal("expected error for unknown saved query")
	} else if _, ok := err.(*savedQueryNotFoundError); !ok {
		t.Fatalf("err = %T, want *savedQueryNotFoundError", err)
	}
	if _, err := buildQuery(settings, ""); err == nil {
		t.Fatal("expected error without name or --where")
	}

	queryWhere = []string{"node is a Claim"}
	if _, err := buildQuery(settings, ""); err == nil {
		t.Fatal("expected parse error for clause without separators")
	}
}

func TestBuildQueryAdHoc(t *testing.T) {
	resetQueryFlags(t)
	prevCfg := cfg
	cfg = &config.Config{Query: config.QueryConfig{PageSize: 5}}
	t.Cleanup(func() { cfg = prevCfg })

	queryWhere = []string{"node | is a | Question", "not node | Informed By | ev"}
	querySelect = []string{"created date AS Created"}
	q, err := buildQuery(&config.GraphConfig{}, "")
	if err != nil {
		t.Fatalf("buildQuery: %v", err)
	}
	if q.Return != "node" {
		t.Errorf("return = %q, want node", q.Return)
	}
	if _, ok := q.Conditions[1].(condition.NegatedClause); !ok {
		t.Errorf("second condition = %T, want NegatedClause", q.Conditions[1])
	}
	if q.Conditions[0].ID() == "" || q.Conditions[0].ID() == q.Conditions[1].ID() {
		t.Errorf("conditions need distinct uids: %q %q", q.Conditions[0].ID(), q.Conditions[1].ID())
	}
	if q.Settings.PageSize != 5 {
		t.Errorf("page size = %d, want 5 from config", q.Settings.PageSize)
	}
}

func seedGraph(t *testing.T, graphPath string) {
	t.Helper()
	store, err := factstore.Open(graphPath)
	if err != nil {
		t.Fatalf("factstore.Open: %v", err)
	}
	defer store.Close()
	_, err = store.Transact(context.Background(), []factstore.Page{
		{UID: "q1", Title: "[[QUE]] - Why is the sky blue?", Children: []factstore.Block{
			{UID: "b1", String: "[[[[EVD]] - Rayleigh scattering]] explains it"},
		}},
		{UID: "q2", Title: "[[QUE]] - Why are sunsets red?"},
		{UID: "e1", Title: "[[EVD]] - Rayleigh scattering"},
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
}

func TestQueryCommandRunsSavedQuery(t *testing.T) {
	resetQueryFlags(t)
	graphPath := useGraph(t)
	seedGraph(t, graphPath)
	jsonOutput = true

	out := captureStdout(t, func() {
		if err := runQuery(queryCmd, []string{"open-questions"}); err != nil {
			t.Fatalf("runQuery: %v", err)
		}
	})

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Rows []map[string]interface{} `json:"rows"`
		} `json:"data"`
		Meta Meta `json:"meta"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("parse output: %v; out=%s", err, out)
	}
	if !resp.OK || resp.Meta.Total != 1 {
		t.Fatalf("unexpected response: %s", out)
	}
	if got := resp.Data.Rows[0]["text"]; got != "[[QUE]] - Why are sunsets red?" {
		t.Errorf("text = %v", got)
	}

	state, err := config.LoadState(resolvedStatePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.LastQuery != "open-questions" {
		t.Errorf("LastQuery = %q, want open-questions", state.LastQuery)
	}
}

func TestQueryCommandPrintsProgram(t *testing.T) {
	resetQueryFlags(t)
	useGraph(t)
	queryWhere = []string{"node | is a | Claim"}
	queryProgramOnly = true
	jsonOutput = false

	out := captureStdout(t, func() {
		if err := runQuery(queryCmd, nil); err != nil {
			t.Fatalf("runQuery: %v", err)
		}
	})
	if !strings.HasPrefix(out, "[:find") || !strings.Contains(out, ":where") {
		t.Errorf("program output = %q", out)
	}
}

func TestQueryCommandUnknownSavedQueryJSON(t *testing.T) {
	resetQueryFlags(t)
	useGraph(t)
	jsonOutput = true

	out := captureStdout(t, func() {
		if err := runQuery(queryCmd, []string{"nope"}); err != nil {
			t.Fatalf("json mode should report errors in the envelope: %v", err)
		}
	})
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("parse output: %v; out=%s", err, out)
	}
	if resp.OK || resp.Error == nil || resp.Error.Code != ErrQueryNotFound {
		t.Errorf("response = %s", out)
	}
}

func TestCollectTriples(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "triples.yaml")
	content := "- [block, is in page, Daily]\n- source: block\n  relation: with text\n  target: hello\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := collectTriples([]string{"page | has title | Daily"}, file)
	if err != nil {
		t.Fatalf("collectTriples: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d triples, want 3: %+v", len(got), got)
	}
	if got[0].Source != "page" || got[0].Target != "Daily" {
		t.Errorf("flag triple = %+v", got[0])
	}
	if got[2].Relation != "with text" || got[2].Target != "hello" {
		t.Errorf("mapping triple = %+v", got[2])
	}

	if _, err := collectTriples([]string{"only | two"}, ""); err == nil {
		t.Error("expected error for malformed triple")
	}
	if _, err := collectTriples([]string{" | rel | x"}, ""); err == nil {
		t.Error("expected error for empty source")
	}
}
