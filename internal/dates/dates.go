// Package dates provides canonical date parsing and formatting helpers.
//
// Two textual forms are canonical in a graph:
// - ISO dates (YYYY-MM-DD) used in settings and date arguments
// - daily page titles ("October 19th, 2026") that name dated pages
//
// Query targets, sort coercion and filter display all go through this package
// so the two forms stay interchangeable.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO date layout.
const DateLayout = "2006-01-02"

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// DailyTitlePattern matches daily page titles. It is passed to compiled
	// programs as the ?date-regex input.
	DailyTitlePattern = `^(January|February|March|April|May|June|July|August|September|October|November|December) ([0-9]|[0-3][0-9])(st|nd|rd|th), ([0-9][0-9][0-9][0-9])$`

	dailyTitleRegex = regexp.MustCompile(DailyTitlePattern)
)

// IsValidDate checks if a string is a valid YYYY-MM-DD date.
func IsValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !IsValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return time.Parse(DateLayout, s)
}

// IsValidDatetime checks if a string is a valid datetime.
//
// Accepted formats:
// - RFC3339 (e.g. 2025-01-01T10:30:00Z, 2025-06-15T14:00:00+05:00)
// - YYYY-MM-DDTHH:MM
// - YYYY-MM-DDTHH:MM:SS
func IsValidDatetime(s string) bool {
	_, err := ParseDatetime(s)
	return err == nil
}

// ParseDatetime parses a datetime in one of the accepted formats.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid datetime: empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime: %q", s)
}

// IsDailyTitle reports whether s is a daily page title that names a real date.
func IsDailyTitle(s string) bool {
	_, err := ParseDailyTitle(s)
	return err == nil
}

// ParseDailyTitle parses a daily page title such as "October 19th, 2026".
func ParseDailyTitle(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	m := dailyTitleRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid daily title: %q", s)
	}
	day, _ := strconv.Atoi(m[2])
	if ordinalSuffix(day) != m[3] {
		return time.Time{}, fmt.Errorf("invalid daily title: %q", s)
	}
	t, err := time.Parse("January 2, 2006", fmt.Sprintf("%s %d, %s", m[1], day, m[4]))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid daily title: %q", s)
	}
	return t, nil
}

// inLocation returns midnight of t's calendar day in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FormatDailyTitle formats t as a daily page title.
func FormatDailyTitle(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month().String(), t.Day(), ordinalSuffix(t.Day()), t.Year())
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// ParseDateArg parses a date argument which can be:
// - any natural expression ParseNatural understands ("today", "3 days ago", ...)
// - "YYYY-MM-DD" format (absolute date)
// - a daily page title
// - Empty string defaults to now
func ParseDateArg(arg string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(arg) == "" {
		return now, nil
	}
	if t, ok := ParseNatural(arg, now); ok {
		return t, nil
	}
	if t, err := ParseDate(arg); err == nil {
		return inLocation(t, now.Location()), nil
	}
	if t, err := ParseDailyTitle(arg); err == nil {
		return inLocation(t, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("invalid date format '%s', use YYYY-MM-DD, a daily title, or an expression like 'today' or '3 days ago'", strings.TrimSpace(arg))
}
