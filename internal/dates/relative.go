package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RelativeDateKind describes whether a relative date keyword resolves to a single date.
type RelativeDateKind int

const (
	RelativeDateUnknown RelativeDateKind = iota
	RelativeDateInstant
)

// RelativeDateResolution is the resolved representation of a relative date keyword.
type RelativeDateResolution struct {
	Keyword string
	Kind    RelativeDateKind
	Date    time.Time
}

var relativeDateKeywords = map[string]struct{}{
	"today":      {},
	"tomorrow":   {},
	"yesterday":  {},
	"last week":  {},
	"next week":  {},
	"last month": {},
	"next month": {},
	"last year":  {},
	"next year":  {},
}

// RelativeDateKeywords lists the keywords in the order they are offered as
// target suggestions.
var RelativeDateKeywords = []string{
	"today", "yesterday", "tomorrow",
	"last week", "next week", "last month", "next month", "last year", "next year",
}

var (
	agoRegex = regexp.MustCompile(`^(\d+)\s+(day|week|month|year)s?\s+ago$`)
	inRegex  = regexp.MustCompile(`^in\s+(\d+)\s+(day|week|month|year)s?$`)
)

// NormalizeRelativeDateKeyword normalizes and validates a relative date keyword.
// Returns the canonical keyword and true when valid.
func NormalizeRelativeDateKeyword(value string) (string, bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if _, ok := relativeDateKeywords[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// IsRelativeDateKeyword reports whether value is a supported relative date keyword.
func IsRelativeDateKeyword(value string) bool {
	_, ok := NormalizeRelativeDateKeyword(value)
	return ok
}

// ResolveRelativeDateKeyword resolves a relative date keyword using the provided "now".
func ResolveRelativeDateKeyword(value string, now time.Time) (RelativeDateResolution, bool) {
	keyword, ok := NormalizeRelativeDateKeyword(value)
	if !ok {
		return RelativeDateResolution{}, false
	}

	anchor := startOfDay(now)
	switch keyword {
	case "today":
		return instantResolution(keyword, anchor), true
	case "tomorrow":
		return instantResolution(keyword, anchor.AddDate(0, 0, 1)), true
	case "yesterday":
		return instantResolution(keyword, anchor.AddDate(0, 0, -1)), true
	case "last week":
		return instantResolution(keyword, anchor.AddDate(0, 0, -7)), true
	case "next week":
		return instantResolution(keyword, anchor.AddDate(0, 0, 7)), true
	case "last month":
		return instantResolution(keyword, anchor.AddDate(0, -1, 0)), true
	case "next month":
		return instantResolution(keyword, anchor.AddDate(0, 1, 0)), true
	case "last year":
		return instantResolution(keyword, anchor.AddDate(-1, 0, 0)), true
	case "next year":
		return instantResolution(keyword, anchor.AddDate(1, 0, 0)), true
	default:
		return RelativeDateResolution{}, false
	}
}

// ParseNatural resolves a natural-language date expression: a relative keyword,
// "N <unit>s ago" or "in N <unit>s". Results are truncated to the start of day.
func ParseNatural(value string, now time.Time) (time.Time, bool) {
	if res, ok := ResolveRelativeDateKeyword(value, now); ok {
		return res.Date, true
	}

	normalized := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	sign := -1
	m := agoRegex.FindStringSubmatch(normalized)
	if m == nil {
		m = inRegex.FindStringSubmatch(normalized)
		sign = 1
	}
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	n *= sign

	anchor := startOfDay(now)
	switch m[2] {
	case "day":
		return anchor.AddDate(0, 0, n), true
	case "week":
		return anchor.AddDate(0, 0, 7*n), true
	case "month":
		return anchor.AddDate(0, n, 0), true
	default:
		return anchor.AddDate(n, 0, 0), true
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func instantResolution(keyword string, date time.Time) RelativeDateResolution {
	return RelativeDateResolution{
		Keyword: keyword,
		Kind:    RelativeDateInstant,
		Date:    startOfDay(date),
	}
}
