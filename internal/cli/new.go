package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/audit"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/template"
	"github.com/aidanlsb/discourse/internal/ui"
)

var newCmd = &cobra.Command{
	Use:   "new <node-type> <content...>",
	Short: "Create a node page from its format and template",
	Long: `Creates a page for a node type. The title comes from the node's format and
the page starts with the node's template blocks, if it has one.

Template lines may use {{title}}, {{content}}, {{type}}, {{date}},
{{isodate}}, {{weekday}} and {{user}}.

Examples:
  dg new claim Short wavelengths scatter more
  dg new Question Why is the sky blue?`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		node, ok := sess.vocab.FindNode(args[0])
		if !ok || node.Format == "" {
			return handleError(ErrNodeNotFound, fmt.Errorf("unknown node type %q", args[0]), "Run 'dg nodes' to see node types")
		}
		content := strings.TrimSpace(strings.Join(args[1:], " "))

		vars := template.NewVariables(node, content, sess.settings.User, time.Now())
		if _, exists := sess.store.EntityByTitle(vars.Title); exists {
			return handleError(ErrPageExists, fmt.Errorf("page %q already exists", vars.Title), "")
		}
		page := factstore.Page{
			Title:    vars.Title,
			Children: template.Blocks(node.Template, vars),
		}
		pages := []factstore.Page{page}
		report, err := sess.store.Append(context.Background(), pages)
		sess.record(sess.audit.LogWrite(audit.OpCreate, "dg new", pages, report, err))
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}

		created, _ := sess.store.EntityByTitle(vars.Title)
		if jsonOutput {
			outputSuccess(map[string]interface{}{
				"title":  vars.Title,
				"uid":    created.UID,
				"type":   node.Type,
				"blocks": report.Blocks,
			}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Created %s", ui.Accent.Render(vars.Title)))
		if report.Blocks > 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("  %d template blocks", report.Blocks)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
