// Package config handles global discourse configuration and per-graph
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultPageSize is used when [query] page_size is unset.
const DefaultPageSize = 20

// ErrGraphNotFound is returned when a graph name is not configured.
var ErrGraphNotFound = errors.New("graph not found")

// Config represents the global configuration.
type Config struct {
	// DefaultGraph is the name of the default graph (from Graphs map).
	DefaultGraph string `toml:"default_graph"`

	// StateFile overrides where state.toml lives. Relative paths are
	// resolved against the config directory.
	StateFile string `toml:"state_file"`

	// Graphs maps graph names to directories.
	Graphs map[string]string `toml:"graphs"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`

	// Query holds result defaults.
	Query QueryConfig `toml:"query"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	CodeTheme string `toml:"code_theme"`
}

// QueryConfig holds result defaults.
type QueryConfig struct {
	PageSize int `toml:"page_size"`
}

// PageSize returns the configured page size or DefaultPageSize.
func (c *Config) PageSize() int {
	if c.Query.PageSize > 0 {
		return c.Query.PageSize
	}
	return DefaultPageSize
}

// GetGraphPath returns the path for a named graph.
// If name is empty, returns the default graph path.
func (c *Config) GetGraphPath(name string) (string, error) {
	if name == "" {
		name = c.DefaultGraph
	}
	if name == "" {
		return "", fmt.Errorf("no default graph configured")
	}
	if path, ok := c.Graphs[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrGraphNotFound, name)
}

// GraphNames returns the configured graph names, sorted.
func (c *Config) GraphNames() []string {
	names := make([]string, 0, len(c.Graphs))
	for name := range c.Graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration from a specific path. A missing file
// yields an empty config.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/discourse/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "discourse", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "discourse", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}
