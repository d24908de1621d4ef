package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/ui"
	"github.com/aidanlsb/discourse/internal/vocab"
)

var nodesCounts bool

type nodeSummary struct {
	Type          string   `json:"type"`
	Text          string   `json:"text"`
	Format        string   `json:"format,omitempty"`
	Specification []string `json:"specification,omitempty"`
	BuiltIn       bool     `json:"builtIn,omitempty"`
	Count         *int     `json:"count,omitempty"`
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List node types",
	Long: `Lists the graph's node types with their title formats. With --counts, pages
whose titles match each format are counted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		summaries, err := summarizeNodes(context.Background(), sess.vocab, sess.store, nodesCounts)
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}

		if jsonOutput {
			outputSuccess(map[string]interface{}{"nodes": summaries}, &Meta{Count: len(summaries)})
			return nil
		}
		for _, n := range summaries {
			line := ui.Accent.Render(n.Text) + " " + ui.Hint("("+n.Type+")")
			if n.Count != nil {
				line += "  " + ui.Count(*n.Count, "page")
			}
			fmt.Println(line)
			if n.Format != "" {
				fmt.Println("  format: " + n.Format)
			}
			for _, s := range n.Specification {
				fmt.Println("  where:  " + s)
			}
		}
		return nil
	},
}

func summarizeNodes(ctx context.Context, v vocab.Vocabulary, store *factstore.Store, counts bool) ([]nodeSummary, error) {
	out := make([]nodeSummary, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		s := nodeSummary{
			Type:    n.Type,
			Text:    n.Text,
			Format:  n.Format,
			BuiltIn: n.BackedBy == vocab.BackedByDefault,
		}
		for _, c := range n.Specification {
			s.Specification = append(s.Specification, condition.String(c))
		}
		if counts && n.Format != "" && !s.BuiltIn {
			titles, err := store.TitlesMatching(ctx, vocab.FormatPattern(n.Format))
			if err != nil {
				return nil, fmt.Errorf("count %s: %w", n.Text, err)
			}
			c := len(titles)
			s.Count = &c
		}
		out = append(out, s)
	}
	return out, nil
}

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "List relations and their templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		rels := sess.vocab.Relations
		if jsonOutput {
			outputSuccess(map[string]interface{}{"relations": rels}, &Meta{Count: len(rels)})
			return nil
		}
		if len(rels) == 0 {
			fmt.Println(ui.Hint("No relations defined in " + sess.path))
			return nil
		}
		for _, r := range rels {
			fmt.Printf("%s %s %s\n", r.Source, ui.Accent.Render(r.Label), r.Destination)
			if r.Complement != "" {
				fmt.Printf("%s %s %s\n", r.Destination, ui.Accent.Render(r.Complement), r.Source)
			}
			for _, t := range r.Triples {
				fmt.Println("  " + ui.Hint(strings.Join([]string{t.Source, t.Relation, t.Target}, " | ")))
			}
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fact store counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		st, err := sess.store.Stats(context.Background())
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		if jsonOutput {
			outputSuccess(map[string]interface{}{
				"graph":  resolvedGraphName,
				"path":   sess.path,
				"pages":  st.Pages,
				"blocks": st.Blocks,
				"datoms": st.Datoms,
			}, nil)
			return nil
		}
		fmt.Println(ui.Header(resolvedGraphName) + " " + ui.Hint(sess.path))
		fmt.Printf("  pages:  %d\n  blocks: %d\n  datoms: %d\n", st.Pages, st.Blocks, st.Datoms)
		return nil
	},
}

func init() {
	nodesCmd.Flags().BoolVar(&nodesCounts, "counts", false, "Count pages matching each node format")
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(statsCmd)
}
