// Package check handles graph-wide validation of the vocabulary, saved
// queries and fact store.
package check

import (
	"context"
	"fmt"
	"sort"

	"github.com/aidanlsb/discourse/internal/condition"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// IssueLevel indicates the severity of an issue.
type IssueLevel int

const (
	LevelError IssueLevel = iota
	LevelWarning
)

func (l IssueLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the level as its lower-case name.
func (l IssueLevel) MarshalText() ([]byte, error) {
	switch l {
	case LevelError:
		return []byte("error"), nil
	case LevelWarning:
		return []byte("warning"), nil
	default:
		return []byte("unknown"), nil
	}
}

// Issue represents a validation issue. Source names what it was found in,
// e.g. "query open-questions" or "node Claim".
type Issue struct {
	Level   IssueLevel `json:"level"`
	Source  string     `json:"source"`
	Message string     `json:"message"`
}

// TitleSource lists page titles matching a regular expression.
type TitleSource interface {
	TitlesMatching(ctx context.Context, pattern string) ([]string, error)
}

// Checker validates one graph.
type Checker struct {
	settings *config.GraphConfig
	registry *query.Registry
	titles   TitleSource
}

// New creates a checker. titles may be nil, in which case the store is not
// consulted.
func New(settings *config.GraphConfig, reg *query.Registry, titles TitleSource) *Checker {
	return &Checker{settings: settings, registry: reg, titles: titles}
}

// Run returns every issue found, errors first.
func (c *Checker) Run(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	for _, err := range c.settings.Validate() {
		issues = append(issues, Issue{Level: LevelError, Source: config.GraphConfigFile, Message: err.Error()})
	}
	for _, name := range c.settings.QueryNames() {
		if q := c.settings.Queries[name]; q != nil {
			issues = append(issues, c.checkQuery(name, q)...)
		}
	}
	if c.titles != nil {
		nodeIssues, err := c.checkNodes(ctx)
		if err != nil {
			return nil, err
		}
		issues = append(issues, nodeIssues...)
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Level < issues[j].Level })
	return issues, nil
}

func (c *Checker) checkQuery(name string, q *config.SavedQuery) []Issue {
	var issues []Issue
	source := "query " + name
	vars := make(map[string]bool)
	condition.Walk(q.Conditions, func(cond condition.Condition) bool {
		var cl condition.Clause
		switch cond := cond.(type) {
		case condition.Clause:
			cl = cond
		case condition.NegatedClause:
			cl = cond.Clause()
		default:
			return true
		}
		vars[cl.Source] = true
		vars[cl.Target] = true
		if _, _, ok := c.registry.Lookup(cl.Relation); !ok {
			issues = append(issues, Issue{
				Level:   LevelWarning,
				Source:  source,
				Message: fmt.Sprintf("no translator matches relation %q; clause %s is skipped", cl.Relation, condition.String(cond)),
			})
		}
		return true
	})
	if q.Return != "" && len(q.Conditions) > 0 && !vars[q.Return] {
		issues = append(issues, Issue{
			Level:   LevelWarning,
			Source:  source,
			Message: fmt.Sprintf("return variable %q does not appear in any condition", q.Return),
		})
	}
	return issues
}

func (c *Checker) checkNodes(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	for _, n := range c.registry.Vocabulary().Nodes {
		if n.Format == "" || n.BackedBy == vocab.BackedByDefault {
			continue
		}
		titles, err := c.titles.TitlesMatching(ctx, vocab.FormatPattern(n.Format))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Text, err)
		}
		if len(titles) == 0 {
			issues = append(issues, Issue{
				Level:   LevelWarning,
				Source:  "node " + n.Text,
				Message: fmt.Sprintf("no pages match format %q", n.Format),
			})
		}
	}
	return issues, nil
}

// Counts returns the number of errors and warnings in issues.
func Counts(issues []Issue) (errors, warnings int) {
	for _, i := range issues {
		if i.Level == LevelError {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}
