package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/discourse/internal/atomicfile"
	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/results"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// GraphConfigFile is the per-graph settings file at the graph root.
const GraphConfigFile = "discourse.yaml"

// GraphConfig represents graph-level configuration from discourse.yaml.
type GraphConfig struct {
	// User is the display name recorded as author of blocks written by the CLI.
	User string `yaml:"user,omitempty"`

	// Nodes and Relations extend the built-in vocabulary.
	Nodes     []vocab.Node     `yaml:"nodes,omitempty"`
	Relations []vocab.Relation `yaml:"relations,omitempty"`

	// Queries defines saved queries that can be run with `dg query <name>`.
	Queries map[string]*SavedQuery `yaml:"queries,omitempty"`

	// Audit turns the .discourse/audit.log write history on or off (default on).
	Audit *bool `yaml:"audit,omitempty"`
}

// AuditEnabled reports whether writes are recorded in the audit log.
func (g *GraphConfig) AuditEnabled() bool {
	return g.Audit == nil || *g.Audit
}

// SavedQuery is a named condition list with its result columns and settings.
type SavedQuery struct {
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Return      string                `yaml:"return" json:"return"`
	Conditions  condition.List        `yaml:"conditions" json:"conditions"`
	Selections  []condition.Selection `yaml:"selections,omitempty" json:"selections,omitempty"`
	Settings    results.Settings      `yaml:"settings,omitempty" json:"settings"`
}

// Vocabulary returns the built-in node types followed by the graph's own.
func (g *GraphConfig) Vocabulary() vocab.Vocabulary {
	return vocab.Merge(vocab.Defaults(), vocab.Vocabulary{Nodes: g.Nodes, Relations: g.Relations})
}

// QueryNames returns the saved query names, sorted.
func (g *GraphConfig) QueryNames() []string {
	names := make([]string, 0, len(g.Queries))
	for name := range g.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports vocabulary and saved-query problems.
func (g *GraphConfig) Validate() []error {
	errs := vocab.Vocabulary{Nodes: g.Nodes, Relations: g.Relations}.Validate()
	for _, name := range g.QueryNames() {
		q := g.Queries[name]
		if q == nil {
			errs = append(errs, fmt.Errorf("query %q: empty definition", name))
			continue
		}
		if strings.TrimSpace(q.Return) == "" {
			errs = append(errs, fmt.Errorf("query %q: return variable is required", name))
		}
		if err := condition.Validate(q.Conditions); err != nil {
			errs = append(errs, fmt.Errorf("query %q: %w", name, err))
		}
	}
	return errs
}

// DefaultGraphConfig returns the configuration written by `dg init`: the
// starter vocabulary and a few example queries.
func DefaultGraphConfig() *GraphConfig {
	starter := vocab.Starter()
	return &GraphConfig{
		Nodes:     starter.Nodes,
		Relations: starter.Relations,
		Queries: map[string]*SavedQuery{
			"claims": {
				Description: "Every claim, newest first",
				Return:      "node",
				Conditions: condition.List{
					condition.Clause{UID: "c1", Source: "node", Relation: "is a", Target: "Claim"},
				},
				Selections: []condition.Selection{{Text: "created date", Label: "Created"}},
				Settings:   results.Settings{Sorts: []results.Sort{{Key: "Created", Descending: true}}},
			},
			"open-questions": {
				Description: "Questions nothing informs yet",
				Return:      "node",
				Conditions: condition.List{
					condition.Clause{UID: "c1", Source: "node", Relation: "is a", Target: "Question"},
					condition.NegatedClause{UID: "c2", Source: "node", Relation: "Informed By", Target: "evidence"},
				},
			},
		},
	}
}

const graphConfigHeader = `# Discourse graph configuration.
# nodes and relations extend the built-in Page and Block types.
# Saved queries run with 'dg query <name>'.
`

// LoadGraphConfig reads discourse.yaml under graphPath. A missing file yields
// an empty configuration.
func LoadGraphConfig(graphPath string) (*GraphConfig, error) {
	configPath := filepath.Join(graphPath, GraphConfigFile)

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &GraphConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph config %s: %w", configPath, err)
	}

	var config GraphConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse graph config %s: %w", configPath, err)
	}
	return &config, nil
}

// SaveGraphConfig writes discourse.yaml atomically.
func SaveGraphConfig(graphPath string, cfg *GraphConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append([]byte(graphConfigHeader), data...)

	if err := atomicfile.WriteFile(filepath.Join(graphPath, GraphConfigFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", GraphConfigFile, err)
	}
	return nil
}

// CreateDefaultGraphConfig writes the default discourse.yaml unless one
// exists. It reports whether a file was written.
func CreateDefaultGraphConfig(graphPath string) (bool, error) {
	if _, err := os.Stat(filepath.Join(graphPath, GraphConfigFile)); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(graphPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create graph directory: %w", err)
	}
	if err := SaveGraphConfig(graphPath, DefaultGraphConfig()); err != nil {
		return false, err
	}
	return true, nil
}
