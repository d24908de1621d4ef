package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/discourse/internal/atomicfile"
)

// StateVersion is the current state file schema version.
const StateVersion = 1

// State is machine-local data the CLI changes as it runs, kept apart from
// the hand-edited config.toml.
type State struct {
	Version     int    `toml:"version"`
	ActiveGraph string `toml:"active_graph,omitempty"`
	LastQuery   string `toml:"last_query,omitempty"`
}

// ResolveConfigPath returns explicit when set, else DefaultPath.
func ResolveConfigPath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return DefaultPath()
}

// ResolveStatePath picks the state.toml location. An explicit path wins,
// then state_file from the config (relative to the config directory), then
// state.toml beside the config file.
func ResolveStatePath(explicit, configPath string, cfg *Config) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	dir := filepath.Dir(ResolveConfigPath(configPath))
	if cfg == nil || strings.TrimSpace(cfg.StateFile) == "" {
		return filepath.Join(dir, "state.toml")
	}

	p := filepath.FromSlash(strings.TrimSpace(cfg.StateFile))
	if filepath.IsAbs(p) || strings.HasPrefix(cfg.StateFile, "/") {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// ResolveGraph picks the graph to open. The explicit flag value wins, then
// the active graph from state, then the configured default. An explicit
// value that is not a configured name is treated as a directory.
func ResolveGraph(cfg *Config, state *State, explicit string) (name, path string, err error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if p, ok := cfg.Graphs[explicit]; ok {
			return explicit, p, nil
		}
		if info, statErr := os.Stat(explicit); statErr == nil && info.IsDir() {
			abs, absErr := filepath.Abs(explicit)
			if absErr != nil {
				return "", "", absErr
			}
			return filepath.Base(abs), abs, nil
		}
		return "", "", fmt.Errorf("%w: %s", ErrGraphNotFound, explicit)
	}

	if state != nil && state.ActiveGraph != "" {
		p, err := cfg.GetGraphPath(state.ActiveGraph)
		if err == nil {
			return state.ActiveGraph, p, nil
		}
		// A graph removed from config.toml falls back to the default.
		if !errors.Is(err, ErrGraphNotFound) {
			return "", "", err
		}
	}

	p, err := cfg.GetGraphPath("")
	if err != nil {
		return "", "", err
	}
	return cfg.DefaultGraph, p, nil
}

// LoadState reads state.toml. A missing file yields a fresh state.
func LoadState(path string) (*State, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}

	state := State{Version: StateVersion}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &state, nil
	}
	if _, err := toml.DecodeFile(path, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	state.normalize()
	return &state, nil
}

// SaveState writes state.toml atomically.
func SaveState(path string, state *State) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("state path is required")
	}
	out := State{}
	if state != nil {
		out = *state
	}
	out.normalize()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write state %s: %w", path, err)
	}
	return nil
}

func (s *State) normalize() {
	if s.Version == 0 {
		s.Version = StateVersion
	}
	s.ActiveGraph = strings.TrimSpace(s.ActiveGraph)
	s.LastQuery = strings.TrimSpace(s.LastQuery)
}
