package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/discourse/internal/atomicfile"
)

type persistedConfig struct {
	DefaultGraph *string              `toml:"default_graph,omitempty"`
	StateFile    *string              `toml:"state_file,omitempty"`
	Graphs       map[string]string    `toml:"graphs,omitempty"`
	UI           *persistedUISettings `toml:"ui,omitempty"`
	Query        *persistedQuery      `toml:"query,omitempty"`
}

type persistedUISettings struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

type persistedQuery struct {
	PageSize int `toml:"page_size,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the global config to a specific path atomically. Empty
// settings are left out of the file.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		DefaultGraph: nonEmptyPtr(cfg.DefaultGraph),
		StateFile:    nonEmptyPtr(cfg.StateFile),
	}
	if len(cfg.Graphs) > 0 {
		out.Graphs = cfg.Graphs
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUISettings{Accent: accent, CodeTheme: codeTheme}
	}
	if cfg.Query.PageSize > 0 {
		out.Query = &persistedQuery{PageSize: cfg.Query.PageSize}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return toml.NewEncoder(w).Encode(out)
	})
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
