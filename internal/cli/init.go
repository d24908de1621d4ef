package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/ui"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Initialize a new graph",
	Long: `Creates a new graph at the specified path and registers it in config.toml.

Creates:
  - discourse.yaml  (vocabulary and saved queries)
  - .discourse/     (fact store)
  - .gitignore      (ignores the fact store)

The first graph registered becomes the default graph.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(initName)
		if name == "" {
			name = filepath.Base(path)
		}

		createdConfig, err := config.CreateDefaultGraphConfig(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", config.GraphConfigFile, err)
		}
		store, err := factstore.Open(path, factstore.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create fact store: %w", err)
		}
		_ = store.Close()

		gitignoreUpdated, err := ensureGitignore(path)
		if err != nil {
			return err
		}

		if cfg.Graphs == nil {
			cfg.Graphs = make(map[string]string)
		}
		registered := cfg.Graphs[name] != path
		cfg.Graphs[name] = path
		if cfg.DefaultGraph == "" {
			cfg.DefaultGraph = name
		}
		if registered {
			if err := config.SaveTo(resolvedConfigPath, cfg); err != nil {
				return err
			}
		}

		if jsonOutput {
			outputSuccess(map[string]interface{}{
				"name":           name,
				"path":           path,
				"created_config": createdConfig,
				"registered":     registered,
			}, nil)
			return nil
		}

		fmt.Printf("Initializing graph at: %s\n", ui.Accent.Render(path))
		if createdConfig {
			fmt.Println(ui.Successf("Created %s (vocabulary and saved queries)", config.GraphConfigFile))
		} else {
			fmt.Printf("• %s already exists (kept)\n", config.GraphConfigFile)
		}
		fmt.Println(ui.Successf("Ensured .discourse/ fact store exists"))
		if gitignoreUpdated {
			fmt.Println(ui.Successf("Updated .gitignore"))
		}
		if registered {
			fmt.Println(ui.Successf("Registered graph %q in %s", name, resolvedConfigPath))
		}
		fmt.Println(ui.Hint("\nNext: dg import <roam-export.json | markdown dir>"))
		return nil
	},
}

// ensureGitignore adds .discourse/ to the graph's .gitignore. It reports
// whether the file changed.
func ensureGitignore(graphPath string) (bool, error) {
	p := filepath.Join(graphPath, ".gitignore")
	existing, err := os.ReadFile(p)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if strings.Contains(string(existing), ".discourse/") {
		return false, nil
	}
	content := strings.TrimRight(string(existing), "\n")
	if content != "" {
		content += "\n\n"
	}
	content += "# discourse fact store (rebuilt with 'dg import')\n.discourse/\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return true, nil
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Name to register the graph under (default: directory name)")
	rootCmd.AddCommand(initCmd)
}
