package cli

import (
	"encoding/json"
	"testing"

	"github.com/aidanlsb/discourse/internal/config"
)

func TestGrammarPushThenPull(t *testing.T) {
	graphPath := useGraph(t)
	jsonOutput = true
	grammarPullWrite = false
	t.Cleanup(func() { grammarPullWrite = false })

	captureStdout(t, func() {
		if err := grammarPushCmd.RunE(grammarPushCmd, nil); err != nil {
			t.Fatalf("push: %v", err)
		}
	})

	// Drop the vocabulary locally, then restore it from the graph.
	settings, err := config.LoadGraphConfig(graphPath)
	if err != nil {
		t.Fatalf("LoadGraphConfig: %v", err)
	}
	settings.Nodes, settings.Relations = nil, nil
	if err := config.SaveGraphConfig(graphPath, settings); err != nil {
		t.Fatalf("SaveGraphConfig: %v", err)
	}

	grammarPullWrite = true
	out := captureStdout(t, func() {
		if err := grammarPullCmd.RunE(grammarPullCmd, nil); err != nil {
			t.Fatalf("pull: %v", err)
		}
	})
	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Written bool `json:"written"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil || !resp.OK || !resp.Data.Written {
		t.Fatalf("unexpected pull output %s (err %v)", out, err)
	}

	restored, err := config.LoadGraphConfig(graphPath)
	if err != nil {
		t.Fatalf("LoadGraphConfig: %v", err)
	}
	want := config.DefaultGraphConfig()
	if len(restored.Nodes) != len(want.Nodes) || len(restored.Relations) != len(want.Relations) {
		t.Fatalf("restored %d nodes and %d relations", len(restored.Nodes), len(restored.Relations))
	}
	if restored.Nodes[1].Type != "claim" || restored.Relations[0].Source != "evidence" {
		t.Errorf("types not restored: %+v / %+v", restored.Nodes[1], restored.Relations[0])
	}
	if len(restored.Queries) != len(want.Queries) {
		t.Errorf("saved queries lost: %v", restored.QueryNames())
	}
}

func TestGrammarPullWithoutPage(t *testing.T) {
	useGraph(t)
	jsonOutput = false

	if err := grammarPullCmd.RunE(grammarPullCmd, nil); err == nil {
		t.Fatal("expected an error when the grammar page is missing")
	}
}

func TestQueryStoredOnPage(t *testing.T) {
	resetQueryFlags(t)
	graphPath := useGraph(t)
	seedGraph(t, graphPath)
	jsonOutput = true

	queryToPage = "Open questions"
	captureStdout(t, func() {
		if err := runQuery(queryCmd, []string{"open-questions"}); err != nil {
			t.Fatalf("runQuery --to-page: %v", err)
		}
	})

	resetQueryFlags(t)
	jsonOutput = true
	queryFrom = "Open questions"
	out := captureStdout(t, func() {
		if err := runQuery(queryCmd, nil); err != nil {
			t.Fatalf("runQuery --from: %v", err)
		}
	})

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Rows []map[string]interface{} `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("parse output: %v; out=%s", err, out)
	}
	if !resp.OK || len(resp.Data.Rows) != 1 || resp.Data.Rows[0]["text"] != "[[QUE]] - Why are sunsets red?" {
		t.Fatalf("unexpected rows: %s", out)
	}
}
