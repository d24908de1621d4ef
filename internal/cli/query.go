package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/lastresults"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/results"
	"github.com/aidanlsb/discourse/internal/ui"
)

var (
	queryWhere       []string
	queryReturn      string
	querySelect      []string
	querySorts       []string
	querySearch      string
	queryPage        int
	queryPageSize    int
	queryRandom      int
	queryProgramOnly bool
	queryList        bool
	queryFrom        string
	queryToPage      string
)

var queryCmd = &cobra.Command{
	Use:   "query [saved-query]",
	Short: "Run a saved query or ad-hoc conditions",
	Long: `Runs a query against the graph.

Saved queries are defined in discourse.yaml. Ad-hoc queries are built from
--where clauses in "source | relation | target" form; prefix a clause with
"not " to negate it. Selections use "expression AS label".

Examples:
  dg query claims
  dg query --return node --where "node | is a | Claim" --select "created date AS Created"
  dg query --where "node | is a | Question" --where "not node | Informed By | evidence"
  dg query claims --sort Created:desc --page 2
  dg query claims --to-page "Open claims"
  dg query --from "Open claims"
  dg query --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	start := time.Now()

	sess, err := openSession()
	if err != nil {
		return handleError(ErrStoreFailed, err, "")
	}
	defer sess.Close()

	if queryList {
		return listSavedQueries(sess.settings)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	var q *config.SavedQuery
	if queryFrom != "" {
		q, err = storedQuery(sess.store, queryFrom)
	} else {
		q, err = buildQuery(sess.settings, name)
	}
	if err != nil {
		var notFound *savedQueryNotFoundError
		if errors.As(err, &notFound) {
			return handleError(ErrQueryNotFound, err, "Run 'dg query --list' to see saved queries")
		}
		return handleError(ErrQueryInvalid, err, "")
	}

	if queryToPage != "" {
		if _, err := saveQueryToPage(context.Background(), sess, queryToPage, q); err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		if !jsonOutput {
			fmt.Fprintln(os.Stderr, ui.Successf("Saved query to %s", ui.Accent.Render(queryToPage)))
		}
	}

	if queryProgramOnly {
		program := sess.executor.Program(q.Conditions, q.Return, q.Selections)
		if jsonOutput {
			outputSuccess(map[string]interface{}{"program": program.String()}, nil)
			return nil
		}
		fmt.Println(program.String())
		return nil
	}

	rows, err := sess.executor.Execute(context.Background(), q.Conditions, q.Return, q.Selections)
	if err != nil {
		var qe *query.QueryError
		if errors.As(err, &qe) {
			return handleErrorWithDetails(ErrQueryFailed, err, map[string]string{"program": qe.Program})
		}
		return handleError(ErrQueryFailed, err, "")
	}
	out := results.Process(rows, q.Settings)

	if name != "" {
		rememberLastQuery(name)
	}
	program := sess.executor.Program(q.Conditions, q.Return, q.Selections).String()
	label := name
	if queryFrom != "" {
		label = queryFrom
	}
	if err := lastresults.Write(sess.path, lastresults.New(label, program, out.All)); err != nil {
		logger.Sugar().Debugw("skipping last results", "error", err)
	}

	if jsonOutput {
		outputSuccess(map[string]interface{}{
			"query": name,
			"rows":  out.Page,
		}, &Meta{Count: len(out.Page), Total: len(out.All), QueryTimeMs: time.Since(start).Milliseconds()})
		return nil
	}

	if len(out.All) == 0 {
		fmt.Println(ui.Hint("No results."))
		return nil
	}
	offset := 0
	if q.Settings.PageSize > 0 && q.Settings.Page > 1 {
		offset = (q.Settings.Page - 1) * q.Settings.PageSize
	}
	fmt.Print(ui.RenderResults(ui.DetectDisplay(), out.Page, offset))
	footer := ui.Count(len(out.All), "result")
	if len(out.Page) < len(out.All) {
		footer += fmt.Sprintf(" (showing %d-%d)", offset+1, offset+len(out.Page))
	}
	fmt.Println(ui.Hint(footer))
	return nil
}

type savedQueryNotFoundError struct{ name string }

func (e *savedQueryNotFoundError) Error() string {
	return fmt.Sprintf("saved query %q not found", e.name)
}

// buildQuery starts from the named saved query, if any, and layers the
// command-line flags on top.
func buildQuery(settings *config.GraphConfig, name string) (*config.SavedQuery, error) {
	q := &config.SavedQuery{Return: "node"}
	if name != "" {
		saved, ok := settings.Queries[name]
		if !ok || saved == nil {
			return nil, &savedQueryNotFoundError{name: name}
		}
		copied := *saved
		copied.Conditions = append(condition.List(nil), saved.Conditions...)
		copied.Selections = append([]condition.Selection(nil), saved.Selections...)
		q = &copied
	}
	return applyQueryFlags(q, name != "")
}

// storedQuery reads the conditions and selections kept under a page or
// block of the graph, named by uid or title, and layers the flags on top.
func storedQuery(store *factstore.Store, ref string) (*config.SavedQuery, error) {
	e, ok := store.EntityByUID(ref)
	if !ok {
		if e, ok = store.EntityByTitle(ref); !ok {
			return nil, fmt.Errorf("%w: %s", factstore.ErrEntityNotFound, ref)
		}
	}
	conds, sels, err := condition.ReadQuery(store, e.UID)
	if err != nil {
		return nil, fmt.Errorf("read query from %s: %w", ref, err)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%s holds no conditions", ref)
	}
	return applyQueryFlags(&config.SavedQuery{Return: "node", Conditions: conds, Selections: sels}, true)
}

func applyQueryFlags(q *config.SavedQuery, hasBase bool) (*config.SavedQuery, error) {
	if queryReturn != "" {
		q.Return = queryReturn
	}
	where := splitNonEmpty(queryWhere)
	if !hasBase && len(where) == 0 {
		return nil, errors.New("a saved query name or at least one --where clause is required")
	}
	for _, w := range where {
		c, err := condition.ParseClause(w)
		if err != nil {
			return nil, err
		}
		q.Conditions = append(q.Conditions, c)
	}
	q.Conditions = condition.AssignUIDs(q.Conditions)
	if err := condition.Validate(q.Conditions); err != nil {
		return nil, err
	}
	for _, s := range splitNonEmpty(querySelect) {
		q.Selections = append(q.Selections, condition.ParseSelection(s))
	}

	sorts, err := parseSorts(querySorts)
	if err != nil {
		return nil, err
	}
	if len(sorts) > 0 {
		q.Settings.Sorts = sorts
	}
	if querySearch != "" {
		q.Settings.Search = querySearch
	}
	if queryRandom > 0 {
		q.Settings.Random = queryRandom
	}
	if queryPage > 0 {
		q.Settings.Page = queryPage
	}
	switch {
	case queryPageSize > 0:
		q.Settings.PageSize = queryPageSize
	case q.Settings.PageSize == 0:
		q.Settings.PageSize = cfg.PageSize()
	}
	return q, nil
}

// saveQueryToPage writes q's conditions and selections under the page
// titled title, creating it if needed, and returns the page uid.
func saveQueryToPage(ctx context.Context, sess *session, title string, q *config.SavedQuery) (string, error) {
	uid, err := ensurePage(ctx, sess.store, title)
	if err != nil {
		return "", err
	}
	err = condition.WriteQuery(sess.store, uid, q.Conditions, q.Selections)
	sess.record(sess.audit.LogTree("dg query --to-page", title, err))
	return uid, err
}

// parseSorts reads "key" or "key:desc" flags.
func parseSorts(values []string) ([]results.Sort, error) {
	var out []results.Sort
	for _, v := range splitNonEmpty(values) {
		key, dir, hasDir := strings.Cut(v, ":")
		s := results.Sort{Key: strings.TrimSpace(key)}
		if hasDir {
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "desc", "descending":
				s.Descending = true
			case "asc", "ascending", "":
			default:
				return nil, fmt.Errorf("invalid sort direction %q (use asc or desc)", dir)
			}
		}
		if s.Key == "" {
			return nil, fmt.Errorf("invalid sort %q: missing key", v)
		}
		out = append(out, s)
	}
	return out, nil
}

func listSavedQueries(settings *config.GraphConfig) error {
	names := settings.QueryNames()
	if jsonOutput {
		list := make([]map[string]interface{}, 0, len(names))
		for _, n := range names {
			q := settings.Queries[n]
			list = append(list, map[string]interface{}{
				"name":        n,
				"description": q.Description,
				"return":      q.Return,
				"conditions":  q.Conditions,
			})
		}
		outputSuccess(map[string]interface{}{"queries": list}, &Meta{Count: len(list)})
		return nil
	}
	if len(names) == 0 {
		fmt.Println(ui.Hint("No saved queries in " + config.GraphConfigFile))
		return nil
	}
	for _, n := range names {
		q := settings.Queries[n]
		fmt.Println(ui.Accent.Render(n))
		if q.Description != "" {
			fmt.Println("  " + ui.Hint(q.Description))
		}
		for _, c := range q.Conditions {
			fmt.Println("  " + condition.String(c))
		}
	}
	return nil
}

func rememberLastQuery(name string) {
	state, err := config.LoadState(resolvedStatePath)
	if err != nil {
		logger.Sugar().Debugw("skipping last query update", "error", err)
		return
	}
	state.LastQuery = name
	if err := config.SaveState(resolvedStatePath, state); err != nil {
		fmt.Fprintln(os.Stderr, ui.Warningf("could not save state: %v", err))
	}
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, `Condition "source | relation | target" (repeatable)`)
	queryCmd.Flags().StringVarP(&queryReturn, "return", "r", "", "Variable to return (default: node)")
	queryCmd.Flags().StringArrayVarP(&querySelect, "select", "s", nil, `Selection "expression AS label" (repeatable)`)
	queryCmd.Flags().StringArrayVar(&querySorts, "sort", nil, "Sort by column, e.g. Created:desc (repeatable)")
	queryCmd.Flags().StringVar(&querySearch, "search", "", "Only rows containing this text")
	queryCmd.Flags().IntVar(&queryPage, "page", 0, "Page number, starting at 1")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", 0, "Rows per page (default from config)")
	queryCmd.Flags().IntVar(&queryRandom, "random", 0, "Sample this many rows at random")
	queryCmd.Flags().BoolVar(&queryProgramOnly, "program", false, "Print the compiled datalog program instead of running it")
	queryCmd.Flags().BoolVar(&queryList, "list", false, "List saved queries")
	queryCmd.Flags().StringVar(&queryFrom, "from", "", "Read conditions and selections stored under this page title or block uid")
	queryCmd.Flags().StringVar(&queryToPage, "to-page", "", "Store the query's conditions and selections under this page")
	rootCmd.AddCommand(queryCmd)
}
