package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/ui"
)

var translatorsOptions bool

type translatorEntry struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	IsVariable  bool     `json:"isVariable,omitempty"`
	Options     []string `json:"options,omitempty"`
}

var translatorsCmd = &cobra.Command{
	Use:   "translators [filter]",
	Short: "List relation labels usable in conditions",
	Long: `Lists every relation the compiler understands, in lookup order: the
built-in relations, node types, and the graph's own relations with their
complements. An optional filter matches labels case-insensitively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		filter := ""
		if len(args) > 0 {
			filter = strings.ToLower(strings.TrimSpace(args[0]))
		}
		entries := translatorEntries(sess.executor.Registry(), filter, translatorsOptions)

		if jsonOutput {
			outputSuccess(map[string]interface{}{"translators": entries}, &Meta{Count: len(entries)})
			return nil
		}
		if len(entries) == 0 {
			fmt.Println(ui.Hint("No matching relations."))
			return nil
		}
		for _, e := range entries {
			line := ui.Accent.Render(e.Label)
			if e.Placeholder != "" {
				line += " " + ui.Hint("<"+e.Placeholder+">")
			}
			fmt.Println(line)
			if e.Description != "" {
				fmt.Println("  " + e.Description)
			}
			if len(e.Options) > 0 {
				fmt.Println("  " + ui.Hint("e.g. "+strings.Join(firstN(e.Options, 5), ", ")))
			}
		}
		return nil
	},
}

func translatorEntries(reg *query.Registry, filter string, withOptions bool) []translatorEntry {
	var out []translatorEntry
	for _, label := range reg.Labels() {
		if filter != "" && !strings.Contains(strings.ToLower(label), filter) {
			continue
		}
		t, _, ok := reg.Lookup(label)
		if !ok {
			continue
		}
		e := translatorEntry{
			Label:       label,
			Description: t.Description,
			Placeholder: t.Placeholder,
			IsVariable:  t.IsVariable,
		}
		if withOptions && t.TargetOptions != nil {
			e.Options = t.TargetOptions()
		}
		out = append(out, e)
	}
	return out
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func init() {
	translatorsCmd.Flags().BoolVar(&translatorsOptions, "options", false, "Include target suggestions")
	rootCmd.AddCommand(translatorsCmd)
}
