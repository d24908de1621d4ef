package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/check"
	"github.com/aidanlsb/discourse/internal/ui"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the graph's vocabulary and saved queries",
	Long: `Checks discourse.yaml and the fact store for problems: invalid node or
relation definitions, saved queries with relations no translator matches,
return variables no condition binds, and node types without pages.

Exits with an error when errors are found, or with --strict when warnings are.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		issues, err := check.New(sess.settings, sess.executor.Registry(), sess.store).Run(context.Background())
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		errs, warns := check.Counts(issues)
		failed := errs > 0 || (checkStrict && warns > 0)

		if jsonOutput {
			if failed {
				return handleErrorWithDetails(ErrCheckFailed,
					fmt.Errorf("%d errors, %d warnings", errs, warns),
					map[string]interface{}{"issues": issues})
			}
			outputSuccess(map[string]interface{}{"issues": issues}, &Meta{Count: len(issues)})
			return nil
		}

		for _, i := range issues {
			if i.Level == check.LevelError {
				fmt.Println(ui.Errorf("%s: %s", ui.Bold.Render(i.Source), i.Message))
			} else {
				fmt.Println(ui.Warningf("%s: %s", ui.Bold.Render(i.Source), i.Message))
			}
		}
		if len(issues) == 0 {
			fmt.Println(ui.Successf("No issues found"))
			return nil
		}
		fmt.Println(ui.Hint(fmt.Sprintf("%d errors, %d warnings", errs, warns)))
		if failed {
			return fmt.Errorf("check failed")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Treat warnings as errors")
	rootCmd.AddCommand(checkCmd)
}
