package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/lastresults"
	"github.com/aidanlsb/discourse/internal/results"
	"github.com/aidanlsb/discourse/internal/ui"
)

var lastUIDs bool

var lastCmd = &cobra.Command{
	Use:   "last [numbers...]",
	Short: "Show rows from the most recent query",
	Long: `Shows the rows of the last 'dg query' run against this graph, without
re-running it. Pick rows by number: "1", "1,3", "2-5".

With --uids only the uid of each row is printed, one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lr, err := lastresults.Read(resolvedGraphPath)
		if err != nil {
			if errors.Is(err, lastresults.ErrNoLastResults) {
				return handleError(ErrQueryNotFound, err, "Run 'dg query' first")
			}
			return handleError(ErrFileReadFailed, err, "")
		}

		rows := lr.Rows
		numbers := make([]int, len(rows))
		for i := range numbers {
			numbers[i] = i + 1
		}
		if len(args) > 0 {
			if numbers, err = lastresults.ParseNumberArgs(args); err != nil {
				return handleError(ErrMissingArgs, err, "")
			}
			if rows, err = lr.GetByNumbers(numbers); err != nil {
				return handleError(ErrMissingArgs, err, "")
			}
		}

		if jsonOutput {
			outputSuccess(map[string]interface{}{
				"query":     lr.Query,
				"program":   lr.Program,
				"timestamp": lr.Timestamp,
				"numbers":   numbers,
				"rows":      rows,
			}, &Meta{Count: len(rows), Total: len(lr.Rows)})
			return nil
		}

		if lastUIDs {
			for _, r := range rows {
				if v, ok := r.Get("uid"); ok {
					fmt.Println(results.DisplayString(v))
				}
			}
			return nil
		}
		if len(rows) == 0 {
			fmt.Println(ui.Hint("The last query returned no results."))
			return nil
		}
		if len(args) == 0 {
			fmt.Print(ui.RenderResults(ui.DetectDisplay(), rows, 0))
		} else {
			for i, r := range rows {
				text, _ := r.Get("text")
				uid, _ := r.Get("uid")
				fmt.Printf("%s %s %s\n", ui.Muted.Render(ui.FormatRowNum(numbers[i], len(lr.Rows))),
					ui.Accent.Render(results.DisplayString(text)), ui.Hint(results.DisplayString(uid)))
			}
		}
		label := lr.Query
		if label == "" {
			label = "ad-hoc query"
		}
		fmt.Println(ui.Hint(fmt.Sprintf("%s from %s at %s", ui.Count(len(lr.Rows), "result"), label, lr.Timestamp.Format("2006-01-02 15:04"))))
		return nil
	},
}

func init() {
	lastCmd.Flags().BoolVar(&lastUIDs, "uids", false, "Print only row uids")
	rootCmd.AddCommand(lastCmd)
}
