package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/ui"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// grammarPage holds the vocabulary when it is kept in the graph itself.
const grammarPage = "discourse-graph/grammar"

var grammarPullWrite bool

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Copy the vocabulary between discourse.yaml and the graph",
	Long: `The vocabulary can live in the graph as an outline on the page
"` + grammarPage + `": a Nodes block with one child per node type and a
Relations block with one child per relation.`,
}

var grammarPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write discourse.yaml's nodes and relations to the grammar page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		v := sess.settings.Vocabulary()
		uid, err := ensurePage(context.Background(), sess.store, grammarPage)
		if err == nil {
			err = vocab.WriteVocabulary(sess.store, uid, v)
		}
		sess.record(sess.audit.LogTree("dg grammar push", grammarPage, err))
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}

		if jsonOutput {
			outputSuccess(map[string]interface{}{"page": grammarPage, "uid": uid}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Wrote %d nodes and %d relations to %s", len(sess.settings.Nodes), len(v.Relations), grammarPage))
		return nil
	},
}

var grammarPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Read nodes and relations from the grammar page",
	Long: `Reads the vocabulary stored on the grammar page and prints it. With --write
it replaces the nodes and relations in discourse.yaml; saved queries are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		page, ok := sess.store.EntityByTitle(grammarPage)
		if !ok {
			return handleError(ErrPageNotFound, fmt.Errorf("no page titled %q", grammarPage), "Run 'dg grammar push' first")
		}
		v, err := vocab.ReadVocabulary(sess.store, page.UID)
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		if errs := v.Validate(); len(errs) > 0 && grammarPullWrite {
			return handleError(ErrConfigInvalid, errs[0], fmt.Sprintf("%d problems in %s", len(errs), grammarPage))
		}

		if grammarPullWrite {
			sess.settings.Nodes = v.Nodes
			sess.settings.Relations = v.Relations
			if err := config.SaveGraphConfig(sess.path, sess.settings); err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
		}

		if jsonOutput {
			outputSuccess(map[string]interface{}{
				"nodes":     v.Nodes,
				"relations": v.Relations,
				"written":   grammarPullWrite,
			}, nil)
			return nil
		}
		out, err := yaml.Marshal(map[string]interface{}{"nodes": v.Nodes, "relations": v.Relations})
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		fmt.Print(string(out))
		if grammarPullWrite {
			fmt.Println(ui.Successf("Updated %s", config.GraphConfigFile))
		}
		return nil
	},
}

func init() {
	grammarPullCmd.Flags().BoolVar(&grammarPullWrite, "write", false, "Replace the vocabulary in discourse.yaml")
	grammarCmd.AddCommand(grammarPushCmd)
	grammarCmd.AddCommand(grammarPullCmd)
	rootCmd.AddCommand(grammarCmd)
}
