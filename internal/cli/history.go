package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/audit"
	"github.com/aidanlsb/discourse/internal/ui"
)

var (
	historySince string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent writes to the graph",
	Long: `Lists imports, appended blocks and watcher syncs recorded in
.discourse/audit.log, newest first.

Examples:
  dg history
  dg history --since 24h --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		if !sess.audit.Enabled() {
			return handleError(ErrConfigInvalid, fmt.Errorf("audit log is disabled"), "Set 'audit: true' in discourse.yaml")
		}

		var entries []audit.Entry
		if historySince != "" {
			d, err := time.ParseDuration(historySince)
			if err != nil {
				return handleError(ErrMissingArgs, fmt.Errorf("invalid --since %q: %w", historySince, err), "Use a duration such as 30m or 48h")
			}
			entries, err = sess.audit.ReadSince(time.Now().Add(-d))
			if err != nil {
				return handleError(ErrFileReadFailed, err, "")
			}
		} else if entries, err = sess.audit.Read(); err != nil {
			return handleError(ErrFileReadFailed, err, "")
		}
		entries = newestFirst(entries, historyLimit)

		if jsonOutput {
			outputSuccess(map[string]interface{}{"entries": entries}, &Meta{Count: len(entries)})
			return nil
		}
		if len(entries) == 0 {
			fmt.Println(ui.Hint("No writes recorded."))
			return nil
		}
		for _, e := range entries {
			fmt.Println(historyLine(e))
		}
		return nil
	},
}

// newestFirst reverses entries and keeps at most limit of them (0 keeps all).
func newestFirst(entries []audit.Entry, limit int) []audit.Entry {
	out := make([]audit.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func historyLine(e audit.Entry) string {
	var sb strings.Builder
	sb.WriteString(ui.Hint(e.Timestamp.Local().Format("2006-01-02 15:04:05")))
	sb.WriteString(" ")
	sb.WriteString(ui.Accent.Render(fmt.Sprintf("%-6s", e.Operation)))
	if e.Source != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Source)
	}
	if e.Pages > 0 || e.Blocks > 0 {
		sb.WriteString(ui.Hint(fmt.Sprintf(" %d pages, %d blocks", e.Pages, e.Blocks)))
	}
	if e.Error != "" {
		sb.WriteString(" ")
		sb.WriteString(ui.Errorf("%s", e.Error))
	}
	return sb.String()
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only entries newer than this duration, e.g. 24h")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
