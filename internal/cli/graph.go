package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/ui"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Manage registered graphs",
}

type graphEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Default bool   `json:"default,omitempty"`
	Active  bool   `json:"active,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

var graphListCmd = &cobra.Command{
	Use:   "list",
	Short: "List graphs from config.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := config.LoadState(resolvedStatePath)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		entries := graphEntries(cfg, state)

		if jsonOutput {
			outputSuccess(map[string]interface{}{"graphs": entries}, &Meta{Count: len(entries)})
			return nil
		}
		if len(entries) == 0 {
			fmt.Println(ui.Hint("No graphs registered. Run 'dg init <path>' to create one."))
			return nil
		}
		for _, e := range entries {
			marker := "  "
			if e.Active {
				marker = ui.Accent.Render("* ")
			}
			line := marker + e.Name + "  " + ui.Hint(e.Path)
			if e.Default {
				line += ui.Hint(" (default)")
			}
			if e.Missing {
				line += " " + ui.Warningf("missing")
			}
			fmt.Println(line)
		}
		return nil
	},
}

// graphEntries lists configured graphs. The active graph is the one from
// state, or the default when state names none.
func graphEntries(cfg *config.Config, state *config.State) []graphEntry {
	active := cfg.DefaultGraph
	if state != nil && state.ActiveGraph != "" {
		if _, ok := cfg.Graphs[state.ActiveGraph]; ok {
			active = state.ActiveGraph
		}
	}
	var out []graphEntry
	for _, name := range cfg.GraphNames() {
		p := cfg.Graphs[name]
		_, statErr := os.Stat(p)
		out = append(out, graphEntry{
			Name:    name,
			Path:    p,
			Default: name == cfg.DefaultGraph,
			Active:  name == active,
			Missing: os.IsNotExist(statErr),
		})
	}
	return out
}

var graphUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := cfg.GetGraphPath(name); err != nil {
			return handleError(ErrGraphNotFound, err, "Run 'dg graph list' to see registered graphs")
		}
		state, err := config.LoadState(resolvedStatePath)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		state.ActiveGraph = name
		if err := config.SaveState(resolvedStatePath, state); err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if jsonOutput {
			outputSuccess(map[string]interface{}{"active": name}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Active graph: %s", name))
		return nil
	},
}

var graphAddDefault bool

var graphAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register an existing graph directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path, err := filepath.Abs(args[1])
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			return handleError(ErrGraphNotFound, fmt.Errorf("not a directory: %s", path), "Run 'dg init "+path+"' to create it")
		}
		if cfg.Graphs == nil {
			cfg.Graphs = make(map[string]string)
		}
		cfg.Graphs[name] = path
		if graphAddDefault || cfg.DefaultGraph == "" {
			cfg.DefaultGraph = name
		}
		if err := config.SaveTo(resolvedConfigPath, cfg); err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if jsonOutput {
			outputSuccess(map[string]interface{}{"name": name, "path": path, "default": cfg.DefaultGraph == name}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Registered %s at %s", name, path))
		return nil
	},
}

var graphRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a graph (files are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, ok := cfg.Graphs[name]; !ok {
			return handleError(ErrGraphNotFound, fmt.Errorf("%w: %s", config.ErrGraphNotFound, name), "")
		}
		delete(cfg.Graphs, name)
		if cfg.DefaultGraph == name {
			cfg.DefaultGraph = ""
		}
		if err := config.SaveTo(resolvedConfigPath, cfg); err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if jsonOutput {
			outputSuccess(map[string]interface{}{"removed": name}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Removed %s from %s", name, resolvedConfigPath))
		return nil
	},
}

func init() {
	graphAddCmd.Flags().BoolVar(&graphAddDefault, "default", false, "Make this the default graph")
	graphCmd.AddCommand(graphListCmd, graphUseCmd, graphAddCmd, graphRemoveCmd)
	rootCmd.AddCommand(graphCmd)
}
