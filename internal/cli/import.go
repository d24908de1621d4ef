package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/audit"
	"github.com/aidanlsb/discourse/internal/importer"
	"github.com/aidanlsb/discourse/internal/ui"
	"github.com/aidanlsb/discourse/internal/watcher"
)

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Load pages into the graph's fact store",
	Long: `Imports a Roam JSON export, a markdown file, or a directory of markdown
files. Pages are replaced by title, so re-importing is safe.

Without a path the graph directory itself is imported as markdown.
With --watch the directory keeps syncing until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		src := sess.path
		if len(args) > 0 {
			src = args[0]
		}
		src, err = filepath.Abs(src)
		if err != nil {
			return handleError(ErrFileReadFailed, err, "")
		}

		spin := ui.NewSpinner("Reading " + filepath.Base(src))
		if !jsonOutput {
			spin.Start()
		}
		pages, err := importer.ReadPath(src)
		if err != nil {
			spin.Stop()
			return handleError(ErrImportFailed, err, "Supported inputs: .json (Roam export), .md, or a directory")
		}
		report, err := sess.store.Transact(context.Background(), pages)
		spin.Stop()
		sess.record(sess.audit.LogWrite(audit.OpImport, src, pages, report, err))
		if err != nil {
			return handleError(ErrImportFailed, err, "")
		}

		if jsonOutput && !importWatch {
			outputSuccess(map[string]interface{}{"source": src, "report": report}, &Meta{Count: report.Pages})
			return nil
		}
		if !jsonOutput {
			fmt.Println(ui.Successf("Imported %d pages and %d blocks from %s", report.Pages, report.Blocks, src))
			if report.Placeholders > 0 {
				fmt.Println(ui.Hint(fmt.Sprintf("  created %d placeholder pages for unresolved references", report.Placeholders)))
			}
		}

		if !importWatch {
			return nil
		}
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			return handleError(ErrImportFailed, fmt.Errorf("--watch needs a directory: %s", src), "")
		}

		w, err := watcher.New(watcher.Config{
			Dir:    src,
			Graph:  sess.store,
			Logger: logger,
			OnSync: func(path string, err error) {
				rel, _ := filepath.Rel(src, path)
				_, statErr := os.Stat(path)
				removed := os.IsNotExist(statErr)
				if removed {
					sess.record(sess.audit.LogRemove(rel, err))
				} else {
					entry := audit.Entry{Operation: audit.OpSync, Source: rel}
					if err != nil {
						entry.Error = err.Error()
					}
					sess.record(sess.audit.Log(entry))
				}
				if err != nil {
					warnf("%s: %v", rel, err)
					return
				}
				if jsonOutput {
					return
				}
				if removed {
					fmt.Println(ui.Successf("Removed %s", rel))
				} else {
					fmt.Println(ui.Successf("Synced %s", rel))
				}
			},
		})
		if err != nil {
			return handleError(ErrImportFailed, err, "")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !jsonOutput {
			fmt.Println(ui.Hint("Watching " + src + " (Ctrl-C to stop)"))
		}
		return w.Run(ctx)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "Keep syncing markdown changes until interrupted")
	rootCmd.AddCommand(importCmd)
}
