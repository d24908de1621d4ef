package query

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/dates"
)

type fakeStore struct {
	respond func(q *datalog.Query, inputs []interface{}) ([][]interface{}, error)
	queries []*datalog.Query
}

func (f *fakeStore) Query(_ context.Context, q *datalog.Query, inputs ...interface{}) ([][]interface{}, error) {
	f.queries = append(f.queries, q)
	return f.respond(q, inputs)
}

func TestExecuteMapsSelections(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	store := &fakeStore{respond: func(q *datalog.Query, inputs []interface{}) ([][]interface{}, error) {
		if len(q.In) == 0 {
			return [][]interface{}{{map[string]interface{}{":block/string": "Status:: done", ":block/order": int64(0)}}}, nil
		}
		if len(inputs) != 1 || inputs[0] != dates.DailyTitlePattern {
			t.Errorf("inputs = %v", inputs)
		}
		claim := map[string]interface{}{":node/title": "[[CLM]] - Sky is blue", ":block/uid": "u1"}
		return [][]interface{}{{
			claim,
			map[string]interface{}{":create/time": created.UnixNano() / int64(time.Millisecond)},
			claim,
			map[string]interface{}{":block/uid": "u1"},
		}}, nil
	}}
	e := NewExecutor(starterRegistry(t), store)

	rows, err := e.Execute(context.Background(), []condition.Condition{
		condition.Clause{Source: "node", Relation: "is a", Target: "Claim", UID: "c1"},
	}, "node", []condition.Selection{
		{Text: "created date", Label: "Created"},
		{Text: "page", Label: "Page"},
		{Text: "Status", Label: "Status"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	row := rows[0]

	wantKeys := []string{ColumnText, ColumnUID, "Created", "Page", "Page-uid", "Status"}
	if got := row.Keys(); strings.Join(got, ",") != strings.Join(wantKeys, ",") {
		t.Errorf("keys = %v, want %v", got, wantKeys)
	}
	if v, _ := row.Get(ColumnText); v != "[[CLM]] - Sky is blue" {
		t.Errorf("text = %v", v)
	}
	if v, _ := row.Get("Created"); !v.(time.Time).Equal(created) {
		t.Errorf("created = %v", v)
	}
	if v, _ := row.Get("Page-uid"); v != "u1" {
		t.Errorf("page uid = %v", v)
	}
	if v, _ := row.Get("Status"); v != "done" {
		t.Errorf("status = %v", v)
	}

	if len(store.queries) != 2 {
		t.Fatalf("store saw %d queries", len(store.queries))
	}
	attr := store.queries[1].String()
	if !strings.Contains(attr, `[?e :block/uid "u1"]`) || !strings.Contains(attr, `"Status::"`) {
		t.Errorf("attribute lookup program:\n%s", attr)
	}
}

func TestExecuteFailureReturnsQueryError(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{respond: func(*datalog.Query, []interface{}) ([][]interface{}, error) {
		return nil, boom
	}}
	e := NewExecutor(starterRegistry(t), store)

	rows, err := e.Execute(context.Background(), nil, "node", nil)
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil", rows)
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("QueryError should unwrap to the store error")
	}
	if !strings.Contains(qe.Program, "[?node :block/uid ?node-uid]") {
		t.Errorf("program = %s", qe.Program)
	}
}

func TestAttributeSelectionNeverFails(t *testing.T) {
	calls := 0
	store := &fakeStore{respond: func(q *datalog.Query, _ []interface{}) ([][]interface{}, error) {
		calls++
		if len(q.In) == 0 {
			return nil, errors.New("attribute lookup failed")
		}
		return [][]interface{}{{
			map[string]interface{}{":block/string": "hello", ":block/uid": "b1"},
			map[string]interface{}{":block/uid": "b1"},
		}}, nil
	}}
	e := NewExecutor(starterRegistry(t), store)
	rows, err := e.Execute(context.Background(), nil, "node", []condition.Selection{{Text: "Missing"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v, ok := rows[0].Get("Missing"); !ok || v != "" {
		t.Errorf("Missing = %v, %v", v, ok)
	}
	if calls != 2 {
		t.Errorf("calls = %d", calls)
	}
}

func TestProgramAddsSelfWhenReturnUnbound(t *testing.T) {
	e := NewExecutor(starterRegistry(t), nil)
	q := e.Program([]condition.Condition{
		condition.Clause{Source: "other", Relation: "references", Target: "x", UID: "c1"},
	}, "node", nil)
	want := []string{"[?other :block/refs ?x]", "[?node :block/uid ?node-uid]"}
	if got := strings.Split(datalog.RenderAll(q.Where), "\n"); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("where = %v", got)
	}
}

func TestNodeSelectionNeedsBoundVariable(t *testing.T) {
	e := NewExecutor(starterRegistry(t), nil)
	q := e.Program([]condition.Condition{
		condition.Clause{Source: "node", Relation: "references", Target: "target", UID: "c1"},
	}, "node", []condition.Selection{
		{Text: "node:target", Label: "Target"},
		{Text: "node:target:uid", Label: "Target UID"},
		{Text: "node:missing", Label: "Missing"},
	})
	want := []string{
		"(pull ?target [:node/title :block/string :block/uid])",
		"(pull ?target [:block/uid])",
		"(pull ?node [:block/uid])",
	}
	for i, w := range want {
		got := q.String()
		if !strings.Contains(got, w) {
			t.Errorf("selection %d: program lacks %s\n%s", i, w, got)
		}
	}
}

func TestRegisterSelectionShadowsBuiltin(t *testing.T) {
	e := NewExecutor(starterRegistry(t), nil)
	e.RegisterSelection(SelectionTranslator{
		Name:     "page title only",
		Pattern:  regexp.MustCompile(`(?i)^page$`),
		Priority: -1,
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: datalog.Attrs(":node/title")}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return stringAttr(mc.Pulled, ":node/title"), nil
		},
	})
	q := e.Program(nil, "node", []condition.Selection{{Text: "page"}})
	if !strings.Contains(q.String(), "(pull ?node [:node/title])") {
		t.Errorf("custom selection not used:\n%s", q.String())
	}
}
