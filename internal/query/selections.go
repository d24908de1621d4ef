package query

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/datalog"
)

// Record is a selection value carrying metadata sub-columns. It is merged
// into a row as label, label-uid, label-display and label-action.
type Record struct {
	Value   interface{}
	UID     string
	Display string
	Action  string
}

// SelectionMatch is a selection matched against a translator pattern.
type SelectionMatch struct {
	Selection condition.Selection
	Groups    []string
	ReturnVar string
	// Scope is the set of variables bound by the compiled conditions.
	Scope []datalog.Variable
}

// InScope reports whether name is bound by the compiled conditions.
func (m SelectionMatch) InScope(name string) bool {
	sym := datalog.SymbolName(name)
	for _, v := range m.Scope {
		if datalog.SymbolName(v.Name) == sym {
			return true
		}
	}
	return false
}

// MapContext is handed to a selection mapper for one result tuple.
type MapContext struct {
	Match  SelectionMatch
	Pulled map[string]interface{}
	Store  FactStore
}

// SelectionTranslator turns a selection expression into a pull and maps the
// pulled entity to a column value.
type SelectionTranslator struct {
	Name     string
	Pattern  *regexp.Regexp
	Priority int
	// Pull returns the pull for a match; false defers to the next translator.
	Pull func(m SelectionMatch) (datalog.Pull, bool)
	// Map returns a scalar, time.Time or Record.
	Map func(ctx context.Context, mc MapContext) (interface{}, error)

	seq int
}

func (e *Executor) registerDefaultSelections() {
	e.RegisterSelection(SelectionTranslator{
		Name:    "node uid",
		Pattern: regexp.MustCompile(`(?i)^node:\s*(.+?)\s*:\s*uid$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			if !m.InScope(m.Groups[1]) {
				return datalog.Pull{}, false
			}
			return datalog.Pull{Var: datalog.Var(m.Groups[1]), Pattern: datalog.Attrs(":block/uid")}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return stringAttr(mc.Pulled, ":block/uid"), nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "node",
		Pattern: regexp.MustCompile(`(?i)^node:\s*(.+?)\s*$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			if !m.InScope(m.Groups[1]) {
				return datalog.Pull{}, false
			}
			return datalog.Pull{Var: datalog.Var(m.Groups[1]), Pattern: datalog.Attrs(":node/title", ":block/string", ":block/uid")}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return Record{Value: entityText(mc.Pulled), UID: stringAttr(mc.Pulled, ":block/uid")}, nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "created date",
		Pattern: regexp.MustCompile(`(?i)^created date$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: datalog.Attrs(":create/time")}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return timeAttr(mc.Pulled, ":create/time"), nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "edited date",
		Pattern: regexp.MustCompile(`(?i)^edited date$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: datalog.Attrs(":edit/time")}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return timeAttr(mc.Pulled, ":edit/time"), nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "author",
		Pattern: regexp.MustCompile(`(?i)^(author|created by)$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: []datalog.PullAttr{
				datalog.Nest(":create/user", datalog.PullAttr{Attr: ":user/display-name"}),
			}}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return stringAttr(nestedAttr(mc.Pulled, ":create/user"), ":user/display-name"), nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "edited by",
		Pattern: regexp.MustCompile(`(?i)^(last )?edited by$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: []datalog.PullAttr{
				datalog.Nest(":edit/user", datalog.PullAttr{Attr: ":user/display-name"}),
			}}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			return stringAttr(nestedAttr(mc.Pulled, ":edit/user"), ":user/display-name"), nil
		},
	})

	e.RegisterSelection(SelectionTranslator{
		Name:    "page",
		Pattern: regexp.MustCompile(`(?i)^page$`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: []datalog.PullAttr{
				{Attr: ":node/title"},
				{Attr: ":block/uid"},
				datalog.Nest(":block/page", datalog.PullAttr{Attr: ":node/title"}, datalog.PullAttr{Attr: ":block/uid"}),
			}}, true
		},
		Map: func(_ context.Context, mc MapContext) (interface{}, error) {
			page := nestedAttr(mc.Pulled, ":block/page")
			if page == nil {
				page = mc.Pulled
			}
			return Record{Value: stringAttr(page, ":node/title"), UID: stringAttr(page, ":block/uid")}, nil
		},
	})
}

// attributeSelection resolves a selection as an attribute of the return
// entity: the text after "<name>::" in one of its descendant blocks. It never
// fails; a missing attribute maps to "".
func (e *Executor) attributeSelection() SelectionTranslator {
	return SelectionTranslator{
		Name:    "attribute",
		Pattern: regexp.MustCompile(`.*`),
		Pull: func(m SelectionMatch) (datalog.Pull, bool) {
			return datalog.Pull{Var: datalog.Var(m.ReturnVar), Pattern: datalog.Attrs(":block/uid")}, true
		},
		Map: func(ctx context.Context, mc MapContext) (interface{}, error) {
			uid := stringAttr(mc.Pulled, ":block/uid")
			if uid == "" || mc.Store == nil {
				return "", nil
			}
			name := strings.TrimSpace(mc.Match.Selection.Text)
			prefix := name + "::"
			q := &datalog.Query{
				Find: []datalog.FindElem{datalog.Pull{Var: datalog.Var("b"), Pattern: datalog.Attrs(":block/string", ":block/order")}},
				Where: []datalog.Clause{
					datalog.Pattern("e", ":block/uid", datalog.Str(uid)),
					datalog.Pattern("b", ":block/parents", datalog.Var("e")),
					datalog.Pattern("b", ":block/string", datalog.Var("s")),
					datalog.PredExpr{Pred: "clojure.string/starts-with?", Args: []datalog.Term{datalog.Var("s"), datalog.Str(prefix)}},
				},
			}
			tuples, err := mc.Store.Query(ctx, q)
			if err != nil || len(tuples) == 0 {
				return "", nil
			}
			best := ""
			for _, t := range tuples {
				if len(t) == 0 {
					continue
				}
				pulled, _ := t[0].(map[string]interface{})
				s := stringAttr(pulled, ":block/string")
				if best == "" || s < best {
					best = s
				}
			}
			return strings.TrimSpace(strings.TrimPrefix(best, prefix)), nil
		},
	}
}

// RegisterSelection adds a selection translator ahead of the attribute
// catch-all. Translators are tried by ascending Priority, then registration
// order; use a negative Priority to shadow a built-in.
func (e *Executor) RegisterSelection(t SelectionTranslator) {
	e.selSeq++
	t.seq = e.selSeq
	e.selections = append(e.selections, t)
	sort.SliceStable(e.selections, func(i, j int) bool {
		if e.selections[i].Priority != e.selections[j].Priority {
			return e.selections[i].Priority < e.selections[j].Priority
		}
		return e.selections[i].seq < e.selections[j].seq
	})
}

// matchSelection picks the translator and pull for one selection.
func (e *Executor) matchSelection(s condition.Selection, returnVar string, scope []datalog.Variable) (SelectionTranslator, SelectionMatch, datalog.Pull) {
	text := strings.TrimSpace(s.Text)
	for _, t := range e.selections {
		groups := t.Pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		m := SelectionMatch{Selection: s, Groups: groups, ReturnVar: returnVar, Scope: scope}
		if pull, ok := t.Pull(m); ok {
			return t, m, pull
		}
	}
	m := SelectionMatch{Selection: s, Groups: []string{text}, ReturnVar: returnVar, Scope: scope}
	pull, _ := e.catchAll.Pull(m)
	return e.catchAll, m, pull
}

func stringAttr(m map[string]interface{}, attr string) string {
	if m == nil {
		return ""
	}
	s, _ := m[attr].(string)
	return s
}

func nestedAttr(m map[string]interface{}, attr string) map[string]interface{} {
	if m == nil {
		return nil
	}
	switch v := m[attr].(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		if len(v) > 0 {
			first, _ := v[0].(map[string]interface{})
			return first
		}
	}
	return nil
}

func timeAttr(m map[string]interface{}, attr string) interface{} {
	if m == nil {
		return nil
	}
	switch v := m[attr].(type) {
	case int64:
		return time.Unix(0, v*int64(time.Millisecond)).UTC()
	case float64:
		return time.Unix(0, int64(v)*int64(time.Millisecond)).UTC()
	case time.Time:
		return v
	}
	return nil
}

// entityText is the display text of an entity: its title for pages,
// otherwise its string.
func entityText(m map[string]interface{}) string {
	if t := stringAttr(m, ":node/title"); t != "" {
		return t
	}
	return stringAttr(m, ":block/string")
}
