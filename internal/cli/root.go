// Package cli implements the dg command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/ui"
)

var (
	// Global flags
	graphFlag     string
	configPath    string
	statePathFlag string
	verbose       bool

	// Resolved values
	resolvedGraphName  string
	resolvedGraphPath  string
	resolvedConfigPath string
	resolvedStatePath  string
	cfg                *config.Config
	logger             = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dg",
	Short: "dg - query a discourse graph",
	Long: `dg builds and runs structured queries over a discourse graph: pages of
questions, claims and evidence connected by typed relations.

Conditions are written as "source | relation | target" and compile to a
datalog program that runs against the graph's local fact store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(verbose)

		var err error
		resolvedConfigPath = config.ResolveConfigPath(configPath)
		cfg, err = config.LoadFrom(resolvedConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		resolvedStatePath = config.ResolveStatePath(statePathFlag, resolvedConfigPath, cfg)
		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)

		if skipsGraph(cmd) {
			return nil
		}

		state, err := config.LoadState(resolvedStatePath)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		resolvedGraphName, resolvedGraphPath, err = config.ResolveGraph(cfg, state, graphFlag)
		if err != nil {
			return fmt.Errorf(`%w

Either:
  1. Use --graph <name or path>
  2. Run 'dg graph use <name>' to set the active graph
  3. Set default_graph in %s
  4. Run 'dg init /path/to/graph' to create one`, err, resolvedConfigPath)
		}
		if _, err := os.Stat(resolvedGraphPath); os.IsNotExist(err) {
			return fmt.Errorf("graph not found: %s\n\nRun 'dg init %s' to create it", resolvedGraphPath, resolvedGraphPath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// skipsGraph reports whether cmd runs without an open graph.
func skipsGraph(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "init", "graph", "completion", "help", "version":
			return true
		}
	}
	return false
}

// newLogger logs warnings and errors to stderr, or everything in
// development format with --verbose.
func newLogger(verbose bool) *zap.Logger {
	var zc zap.Config
	if verbose {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&graphFlag, "graph", "g", "", "Graph name from config, or a graph directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&statePathFlag, "state", "", "Path to state file (overrides state_file in config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output to stderr")
}

func warnf(format string, args ...interface{}) {
	if jsonOutput {
		return
	}
	fmt.Fprintln(os.Stderr, ui.Warningf(format, args...))
}

func splitNonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
