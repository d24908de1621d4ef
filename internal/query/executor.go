package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/dates"
	"github.com/aidanlsb/discourse/internal/results"
)

// Row is one mapped result row.
type Row = results.Row

// FactStore executes datalog programs. Each returned tuple holds one value
// per find element; pulls yield map[string]interface{} keyed by attribute.
type FactStore interface {
	Query(ctx context.Context, q *datalog.Query, inputs ...interface{}) ([][]interface{}, error)
}

// QueryError is returned when the fact store rejects or fails a program.
type QueryError struct {
	Program string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Default columns every row carries ahead of the user selections.
const (
	ColumnText = "text"
	ColumnUID  = results.KeyUID
)

// Executor compiles conditions and selections into a program, runs it and
// maps tuples into rows.
type Executor struct {
	registry   *Registry
	store      FactStore
	logger     *zap.Logger
	selections []SelectionTranslator
	selSeq     int
	catchAll   SelectionTranslator
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger used for execution failures.
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor over store using reg to compile conditions.
func NewExecutor(reg *Registry, store FactStore, opts ...ExecutorOption) *Executor {
	e := &Executor{registry: reg, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.catchAll = e.attributeSelection()
	e.registerDefaultSelections()
	return e
}

// Registry returns the registry used to compile conditions.
func (e *Executor) Registry() *Registry { return e.registry }

type boundSelection struct {
	selection  condition.Selection
	translator SelectionTranslator
	match      SelectionMatch
}

// Program builds the full program for conditions: the compiled clauses (plus
// a self clause when they leave returnVar unbound), a pull for the default
// text and uid columns, and one pull per selection.
func (e *Executor) Program(conditions []condition.Condition, returnVar string, selections []condition.Selection) *datalog.Query {
	q, _ := e.program(conditions, returnVar, selections)
	return q
}

func (e *Executor) program(conditions []condition.Condition, returnVar string, selections []condition.Selection) (*datalog.Query, []boundSelection) {
	where := e.registry.Compile(conditions, returnVar)
	if !datalog.HasVariable(where, returnVar) {
		where = append(where, e.registry.Translate(LabelSelf, returnVar, returnVar, "")...)
	}
	scope := datalog.Variables(where)

	q := &datalog.Query{
		Find: []datalog.FindElem{
			datalog.Pull{Var: datalog.Var(returnVar), Pattern: datalog.Attrs(":block/string", ":node/title", ":block/uid")},
		},
		In:    []datalog.Variable{datalog.Var(DateRegexVar)},
		Where: where,
	}
	bound := make([]boundSelection, 0, len(selections))
	for _, s := range selections {
		t, m, pull := e.matchSelection(s, returnVar, scope)
		q.Find = append(q.Find, pull)
		bound = append(bound, boundSelection{selection: s, translator: t, match: m})
	}
	return q, bound
}

// Execute runs the conditions and maps every tuple into a row. On failure
// it logs the program and returns an empty row list with a *QueryError.
func (e *Executor) Execute(ctx context.Context, conditions []condition.Condition, returnVar string, selections []condition.Selection) ([]Row, error) {
	q, bound := e.program(conditions, returnVar, selections)
	program := q.String()

	tuples, err := e.store.Query(ctx, q, dates.DailyTitlePattern)
	if err != nil {
		e.logger.Error("query execution failed", zap.String("program", program), zap.Error(err))
		return []Row{}, &QueryError{Program: program, Err: err}
	}

	rows := make([]Row, 0, len(tuples))
	for _, tuple := range tuples {
		row := results.NewRow()
		base, _ := tupleMap(tuple, 0)
		row.Set(ColumnText, entityText(base))
		row.Set(ColumnUID, stringAttr(base, ":block/uid"))

		for i, b := range bound {
			pulled, _ := tupleMap(tuple, i+1)
			value, err := b.translator.Map(ctx, MapContext{Match: b.match, Pulled: pulled, Store: e.store})
			if err != nil {
				e.logger.Warn("selection mapping failed",
					zap.String("selection", b.selection.Text), zap.Error(err))
				value = ""
			}
			mergeValue(&row, labelOf(b.selection), value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func labelOf(s condition.Selection) string {
	if s.Label != "" {
		return s.Label
	}
	return s.Text
}

func mergeValue(row *Row, label string, value interface{}) {
	rec, ok := value.(Record)
	if !ok {
		row.Set(label, value)
		return
	}
	row.Set(label, rec.Value)
	if rec.UID != "" {
		row.Set(label+results.SuffixUID, rec.UID)
	}
	if rec.Display != "" {
		row.Set(label+results.SuffixDisplay, rec.Display)
	}
	if rec.Action != "" {
		row.Set(label+results.SuffixAction, rec.Action)
	}
}

func tupleMap(tuple []interface{}, i int) (map[string]interface{}, bool) {
	if i >= len(tuple) {
		return nil, false
	}
	m, ok := tuple[i].(map[string]interface{})
	return m, ok
}
