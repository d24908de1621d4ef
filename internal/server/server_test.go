package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/vocab"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T, opts ...Option) (*Server, *factstore.Store) {
	t.Helper()
	clock := func() time.Time { return testNow }
	s, err := factstore.OpenInMemory(factstore.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Transact(context.Background(), []factstore.Page{
		{UID: "q1", Title: "[[QUE]] - Why is the sky blue?", Children: []factstore.Block{
			{UID: "b1", String: "[[[[EVD]] - Rayleigh scattering]] explains it"},
		}},
		{UID: "q2", Title: "[[QUE]] - Why are sunsets red?"},
		{UID: "e1", Title: "[[EVD]] - Rayleigh scattering"},
	})
	require.NoError(t, err)

	v := vocab.Merge(vocab.Defaults(), vocab.Starter())
	reg := query.NewRegistry(v, query.WithEntityIndex(s), query.WithClock(clock))
	comp := blocks.NewCompiler(v, blocks.WithEntityIndex(s), blocks.WithClock(clock))

	opts = append([]Option{WithSavedQueries(config.DefaultGraphConfig().Queries)}, opts...)
	return New(query.NewExecutor(reg, s), comp, opts...), s
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
	}
	return rec.Code, resp, string(raw)
}

func dataAs(t *testing.T, resp Response, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

type queryPayload struct {
	Program string                   `json:"program"`
	Total   int                      `json:"total"`
	Rows    []map[string]interface{} `json:"rows"`
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	code, resp, _ := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.OK)
}

func TestQueryInline(t *testing.T) {
	srv, _ := testServer(t)
	body := `{
		"return": "node",
		"conditions": [{"uid": "c1", "type": "clause", "source": "node", "relation": "is a", "target": "Question"}],
		"settings": {"sorts": [{"key": "text"}]}
	}`
	code, resp, raw := do(t, srv.Handler(), http.MethodPost, "/api/query", body)
	require.Equal(t, http.StatusOK, code, raw)

	var out queryPayload
	dataAs(t, resp, &out)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "[[QUE]] - Why are sunsets red?", out.Rows[0]["text"])
	assert.Contains(t, out.Program, ":find")
}

func TestQuerySavedByName(t *testing.T) {
	srv, _ := testServer(t)
	code, resp, raw := do(t, srv.Handler(), http.MethodPost, "/api/query", `{"name": "open-questions"}`)
	require.Equal(t, http.StatusOK, code, raw)

	var out queryPayload
	dataAs(t, resp, &out)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "[[QUE]] - Why are sunsets red?", out.Rows[0]["text"])

	code, resp, _ = do(t, srv.Handler(), http.MethodPost, "/api/query", `{"name": "nope"}`)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeQueryNotFound, resp.Error.Code)
}

func TestQueryValidation(t *testing.T) {
	srv, _ := testServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"return":`},
		{"unknown field", `{"return": "n", "bogus": 1}`},
		{"missing return", `{"conditions": []}`},
		{"negative page", `{"return": "n", "settings": {"page": -1}}`},
		{"selection without text", `{"return": "n", "selections": [{"label": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp, raw := do(t, srv.Handler(), http.MethodPost, "/api/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, code, raw)
			require.NotNil(t, resp.Error)
			assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
		})
	}
}

func TestDuplicateConditionUIDsRejected(t *testing.T) {
	srv, _ := testServer(t)
	conds := `[
		{"uid": "x", "type": "clause", "source": "ev", "relation": "Informs", "target": "a"},
		{"uid": "x", "type": "clause", "source": "ev", "relation": "Informs", "target": "b"}
	]`
	for _, path := range []string{"/api/query", "/api/compile"} {
		t.Run(path, func(t *testing.T) {
			code, resp, raw := do(t, srv.Handler(), http.MethodPost, path, `{"return": "ev", "conditions": `+conds+`}`)
			assert.Equal(t, http.StatusBadRequest, code, raw)
			require.NotNil(t, resp.Error)
			assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "duplicate condition uid")
		})
	}

	distinct := strings.Replace(conds, `"uid": "x", "type": "clause", "source": "ev", "relation": "Informs", "target": "b"`, `"uid": "y", "type": "clause", "source": "ev", "relation": "Informs", "target": "b"`, 1)
	code, _, raw := do(t, srv.Handler(), http.MethodPost, "/api/compile", `{"return": "ev", "conditions": `+distinct+`}`)
	assert.Equal(t, http.StatusOK, code, raw)
}

func TestCompile(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"return": "ev", "conditions": [{"uid": "c1", "type": "clause", "source": "ev", "relation": "Informs", "target": "q"}]}`
	code, resp, raw := do(t, srv.Handler(), http.MethodPost, "/api/compile", body)
	require.Equal(t, http.StatusOK, code, raw)

	var out struct {
		Program string `json:"program"`
		Clauses int    `json:"clauses"`
	}
	dataAs(t, resp, &out)
	assert.Contains(t, out.Program, "?ev")
	assert.Greater(t, out.Clauses, 0)
}

func TestTranslators(t *testing.T) {
	srv, _ := testServer(t)
	code, resp, _ := do(t, srv.Handler(), http.MethodGet, "/api/translators", "")
	require.Equal(t, http.StatusOK, code)

	var out []TranslatorInfo
	dataAs(t, resp, &out)
	labels := make([]string, len(out))
	for i, ti := range out {
		labels[i] = ti.Label
	}
	assert.Contains(t, labels, "is a")
	assert.Contains(t, labels, "Informed By")
}

func TestBlocksPreviewAndWrite(t *testing.T) {
	srv, store := testServer(t)
	body := `{"triples": [
		{"source": "note", "relation": "is in page", "target": "[[QUE]] - Why are sunsets red?"},
		{"source": "note", "relation": "with text", "target": "see [[[[EVD]] - Rayleigh scattering]]"}
	]}`

	code, resp, raw := do(t, srv.Handler(), http.MethodPost, "/api/blocks", body)
	require.Equal(t, http.StatusOK, code, raw)
	var preview BlocksResponse
	dataAs(t, resp, &preview)
	require.Len(t, preview.Pages, 1)
	assert.Equal(t, "q2", preview.Pages[0].UID)
	assert.Nil(t, preview.Report)

	writeBody := strings.Replace(body, `{"triples"`, `{"write": true, "triples"`, 1)
	code, resp, _ = do(t, srv.Handler(), http.MethodPost, "/api/blocks", writeBody)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, CodeWriteDisabled, resp.Error.Code)

	srv.store = store
	code, resp, raw = do(t, srv.Handler(), http.MethodPost, "/api/blocks", writeBody)
	require.Equal(t, http.StatusOK, code, raw)
	var written BlocksResponse
	dataAs(t, resp, &written)
	require.NotNil(t, written.Report)
	assert.Equal(t, 1, written.Report.Blocks)

	p, ok := store.EntityByUID("q2")
	require.True(t, ok)
	assert.Equal(t, "[[QUE]] - Why are sunsets red?", p.Title)
}

func TestBlocksRejectsEmptyTriples(t *testing.T) {
	srv, _ := testServer(t)
	code, _, _ := do(t, srv.Handler(), http.MethodPost, "/api/blocks", `{"triples": []}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _, _ = do(t, srv.Handler(), http.MethodPost, "/api/blocks", `{"triples": [{"source": "a", "relation": "", "target": "b"}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMetricsExposed(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/query", `{"return": "node", "conditions": [{"uid": "c1", "type": "clause", "source": "node", "relation": "is a", "target": "Question"}]}`)

	code, _, raw := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw, `discourse_query_executions_total{outcome="ok"} 1`)
	assert.Contains(t, raw, `discourse_http_requests_total{method="POST",route="/api/query",status="200"} 1`)
}
