package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/audit"
	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/ui"
	"github.com/aidanlsb/discourse/internal/vocab"
)

var (
	blocksTriples []string
	blocksFile    string
	blocksWrite   bool
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Turn relation triples into pages and blocks",
	Long: `Compiles triples into the pages and blocks that express them. Triples use
"source | relation | target" on the command line, or a YAML list of
[source, relation, target] entries with --file.

The result is printed as an outline. With --write the blocks are appended to
the graph; existing pages are extended, never replaced.

Examples:
  dg blocks --triple "block | is in page | Daily Notes" --triple "block | with text | hello"
  dg blocks --file triples.yaml --write`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		triples, err := collectTriples(blocksTriples, blocksFile)
		if err != nil {
			return handleError(ErrTripleInvalid, err, "")
		}
		if len(triples) == 0 {
			return handleError(ErrMissingArgs, fmt.Errorf("no triples given"), "Use --triple or --file")
		}

		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		pages := sess.blocks.ToPages(triples)
		data := map[string]interface{}{"pages": pages}
		if blocksWrite {
			factPages := blocks.ToFactPages(pages)
			report, err := sess.store.Append(context.Background(), factPages)
			sess.record(sess.audit.LogWrite(audit.OpAppend, "dg blocks", factPages, report, err))
			if err != nil {
				return handleError(ErrStoreFailed, err, "")
			}
			data["written"] = report
		}

		if jsonOutput {
			outputSuccess(data, &Meta{Count: len(pages)})
			return nil
		}

		d := ui.DetectDisplay()
		outline := outlinePages(pages)
		if d.IsTTY {
			if rendered, err := ui.RenderMarkdown(outline, d.Width); err == nil {
				outline = rendered
			}
		}
		fmt.Print(outline)
		if blocksWrite {
			fmt.Println(ui.Successf("Wrote %d blocks", countBlocks(pages)))
		}
		return nil
	},
}

// collectTriples reads --triple flags followed by the entries of a YAML file.
func collectTriples(flags []string, file string) ([]vocab.Triple, error) {
	var out []vocab.Triple
	for _, f := range splitNonEmpty(flags) {
		parts := strings.SplitN(f, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid triple %q: expected \"source | relation | target\"", f)
		}
		t := vocab.Triple{
			Source:   strings.TrimSpace(parts[0]),
			Relation: strings.TrimSpace(parts[1]),
			Target:   strings.TrimSpace(parts[2]),
		}
		if t.Source == "" || t.Relation == "" {
			return nil, fmt.Errorf("invalid triple %q: source and relation are required", f)
		}
		out = append(out, t)
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var fromFile []vocab.Triple
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out = append(out, fromFile...)
	}
	return out, nil
}

func outlinePages(pages []blocks.Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("## ")
		sb.WriteString(p.Title)
		sb.WriteString("\n\n")
		outlineBlocks(&sb, p.Children, 0)
	}
	return sb.String()
}

func outlineBlocks(sb *strings.Builder, bs []blocks.Block, depth int) {
	for _, b := range bs {
		ui.Outline(sb, depth, b.Text, 0)
		outlineBlocks(sb, b.Children, depth+1)
	}
}

func countBlocks(pages []blocks.Page) int {
	var walk func([]blocks.Block) int
	walk = func(bs []blocks.Block) int {
		n := len(bs)
		for _, b := range bs {
			n += walk(b.Children)
		}
		return n
	}
	total := 0
	for _, p := range pages {
		total += walk(p.Children)
	}
	return total
}

func init() {
	blocksCmd.Flags().StringArrayVarP(&blocksTriples, "triple", "t", nil, `Triple "source | relation | target" (repeatable)`)
	blocksCmd.Flags().StringVarP(&blocksFile, "file", "f", "", "YAML file with a list of triples")
	blocksCmd.Flags().BoolVar(&blocksWrite, "write", false, "Append the compiled blocks to the graph")
	rootCmd.AddCommand(blocksCmd)
}
