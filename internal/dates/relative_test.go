package dates

import (
	"testing"
	"time"
)

func TestNormalizeRelativeDateKeyword(t *testing.T) {
	if got, ok := NormalizeRelativeDateKeyword(" today "); !ok || got != "today" {
		t.Fatalf("NormalizeRelativeDateKeyword(today) = %q, %v", got, ok)
	}
	if got, ok := NormalizeRelativeDateKeyword("Last   Week"); !ok || got != "last week" {
		t.Fatalf("NormalizeRelativeDateKeyword(Last Week) = %q, %v", got, ok)
	}
	if _, ok := NormalizeRelativeDateKeyword("this-week"); ok {
		t.Fatalf("expected this-week to be rejected")
	}
}

func TestResolveRelativeDateKeyword_Instants(t *testing.T) {
	now := time.Date(2026, time.March, 4, 14, 30, 0, 0, time.UTC) // Wednesday

	tests := map[string]string{
		"today":      "2026-03-04",
		"tomorrow":   "2026-03-05",
		"yesterday":  "2026-03-03",
		"last week":  "2026-02-25",
		"next month": "2026-04-04",
	}
	for keyword, want := range tests {
		res, ok := ResolveRelativeDateKeyword(keyword, now)
		if !ok {
			t.Fatalf("expected %s to resolve", keyword)
		}
		if got := res.Date.Format(DateLayout); got != want {
			t.Fatalf("%s resolved to %s, want %s", keyword, got, want)
		}
	}
}

func TestParseNatural(t *testing.T) {
	now := time.Date(2026, time.March, 4, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3 days ago", "2026-03-01", true},
		{"1 week ago", "2026-02-25", true},
		{"in 2 days", "2026-03-06", true},
		{"in 1 month", "2026-04-04", true},
		{"2 years ago", "2024-03-04", true},
		{"someday", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseNatural(tt.in, now)
		if ok != tt.ok {
			t.Fatalf("ParseNatural(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && got.Format(DateLayout) != tt.want {
			t.Fatalf("ParseNatural(%q) = %s, want %s", tt.in, got.Format(DateLayout), tt.want)
		}
	}
}
