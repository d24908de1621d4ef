package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/ui"
)

var (
	compileReturn  string
	compileSelect  []string
	compileClauses bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <clause>...",
	Short: "Compile conditions to a datalog program without running it",
	Long: `Compiles each "source | relation | target" argument into datalog.

By default the full program is printed, as 'dg query --program' would run it.
With --clauses only the where clauses of each condition are shown.

Examples:
  dg compile "node | is a | Claim"
  dg compile --clauses "node | Supports | Q1" "not node | references | [[Draft]]"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		var conds condition.List
		for _, a := range splitNonEmpty(args) {
			c, err := condition.ParseClause(a)
			if err != nil {
				return handleError(ErrQueryInvalid, err, `Clauses look like "node | is a | Claim"`)
			}
			conds = append(conds, c)
		}
		conds = condition.AssignUIDs(conds)

		var selections []condition.Selection
		for _, s := range splitNonEmpty(compileSelect) {
			selections = append(selections, condition.ParseSelection(s))
		}

		reg := sess.executor.Registry()
		if compileClauses {
			out := make([]map[string]interface{}, 0, len(conds))
			for _, c := range conds {
				clauses := reg.Compile([]condition.Condition{c}, compileReturn)
				rendered := make([]string, len(clauses))
				for i, cl := range clauses {
					rendered[i] = datalog.Render(cl)
				}
				out = append(out, map[string]interface{}{
					"condition": condition.String(c),
					"clauses":   rendered,
				})
			}
			if jsonOutput {
				outputSuccess(map[string]interface{}{"conditions": out}, &Meta{Count: len(out)})
				return nil
			}
			for _, entry := range out {
				fmt.Println(ui.Accent.Render(entry["condition"].(string)))
				for _, cl := range entry["clauses"].([]string) {
					fmt.Println("  " + cl)
				}
			}
			return nil
		}

		program := sess.executor.Program(conds, compileReturn, selections)
		if jsonOutput {
			outputSuccess(map[string]interface{}{"program": program.String()}, nil)
			return nil
		}
		fmt.Println(program.String())
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileReturn, "return", "r", "node", "Variable to return")
	compileCmd.Flags().StringArrayVarP(&compileSelect, "select", "s", nil, `Selection "expression AS label" (repeatable)`)
	compileCmd.Flags().BoolVar(&compileClauses, "clauses", false, "Show each condition's clauses instead of the full program")
	rootCmd.AddCommand(compileCmd)
}
