// Package lastresults persists the rows of the most recent query so
// follow-up commands can refer to them by number.
package lastresults

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aidanlsb/discourse/internal/atomicfile"
	"github.com/aidanlsb/discourse/internal/results"
)

// LastResults is the stored outcome of the last `dg query`.
// Persisted to .discourse/last-results.json.
type LastResults struct {
	Query     string        `json:"query,omitempty"`
	Program   string        `json:"program"`
	Timestamp time.Time     `json:"timestamp"`
	Rows      []results.Row `json:"rows"`
}

var (
	ErrNoLastResults    = errors.New("no last results available")
	ErrNumberOutOfRange = errors.New("result number out of range")
)

// Path returns the path to the last-results.json file.
func Path(graphPath string) string {
	return filepath.Join(graphPath, ".discourse", "last-results.json")
}

// Write saves the last results to disk.
func Write(graphPath string, lr *LastResults) error {
	if err := os.MkdirAll(filepath.Dir(Path(graphPath)), 0o755); err != nil {
		return fmt.Errorf("failed to create .discourse directory: %w", err)
	}
	data, err := json.MarshalIndent(lr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal last results: %w", err)
	}
	if err := atomicfile.WriteFile(Path(graphPath), data, 0o644); err != nil {
		return fmt.Errorf("failed to write last results: %w", err)
	}
	return nil
}

// Read loads the last results. A missing file is ErrNoLastResults.
func Read(graphPath string) (*LastResults, error) {
	data, err := os.ReadFile(Path(graphPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLastResults
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last results: %w", err)
	}
	var lr LastResults
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("failed to parse last results: %w", err)
	}
	return &lr, nil
}

// New records rows produced by program. query is the saved query name, if any.
func New(query, program string, rows []results.Row) *LastResults {
	return &LastResults{
		Query:     query,
		Program:   program,
		Timestamp: time.Now(),
		Rows:      rows,
	}
}

// GetByNumbers returns the rows with the given 1-indexed numbers.
func (lr *LastResults) GetByNumbers(nums []int) ([]results.Row, error) {
	out := make([]results.Row, 0, len(nums))
	for _, num := range nums {
		if num < 1 || num > len(lr.Rows) {
			return nil, fmt.Errorf("%w: %d (valid range: 1-%d)", ErrNumberOutOfRange, num, len(lr.Rows))
		}
		out = append(out, lr.Rows[num-1])
	}
	return out, nil
}
