package ui

import (
	"strings"
	"testing"

	"github.com/aidanlsb/discourse/internal/results"
)

func TestNormalizeAccentColor(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"", "", false},
		{"39", "39", true},
		{"  244 ", "244", true},
		{"256", "", false},
		{"-1", "", false},
		{"#7AA2F7", "#7aa2f7", true},
		{"#abc", "#aabbcc", true},
		{"#zzzzzz", "", false},
		{"blue", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := normalizeAccentColor(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("normalizeAccentColor(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConfigureTheme(t *testing.T) {
	origAccent, origColor := Accent, accentColor
	t.Cleanup(func() { Accent, accentColor = origAccent, origColor })

	ConfigureTheme("39")
	if got, ok := AccentColor(); !ok || got != "39" {
		t.Fatalf("AccentColor = %q, %v", got, ok)
	}
	ConfigureTheme("bogus")
	if got, _ := AccentColor(); got != "39" {
		t.Fatalf("invalid accent should be ignored, got %q", got)
	}
	ConfigureTheme("none")
	if _, ok := AccentColor(); ok {
		t.Fatal("expected accent to be disabled")
	}
}

func TestConfigureMarkdownCodeTheme(t *testing.T) {
	orig := markdownCodeTheme
	t.Cleanup(func() { markdownCodeTheme = orig })

	ConfigureMarkdownCodeTheme("DrAcUlA")
	if markdownStyle().CodeBlock.Theme != "dracula" {
		t.Fatalf("theme = %q", markdownStyle().CodeBlock.Theme)
	}
	ConfigureMarkdownCodeTheme("not-a-theme")
	if markdownCodeTheme != defaultCodeTheme {
		t.Fatalf("expected fallback to %q, got %q", defaultCodeTheme, markdownCodeTheme)
	}
}

func TestRenderMarkdownSingleTrailingNewline(t *testing.T) {
	out, err := RenderMarkdown("# Heading\n\n- item", 0)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Fatalf("expected one trailing newline, got %q", out)
	}
	if !strings.Contains(out, "item") {
		t.Fatalf("missing content: %q", out)
	}
}

func TestOutline(t *testing.T) {
	var sb strings.Builder
	Outline(&sb, 0, "Supported By", 2)
	Outline(&sb, 1, "line one\nline two", 0)
	want := "- ## Supported By\n  - line one line two\n"
	if sb.String() != want {
		t.Fatalf("Outline = %q, want %q", sb.String(), want)
	}
}

func TestRenderResults(t *testing.T) {
	r1 := results.NewRow()
	r1.Set("text", "[[CLM]] - Short wavelengths scatter more")
	r1.Set("uid", "n7")
	r1.Set("text-uid", "c1")
	r1.Set("Author", "Ada")
	r2 := results.NewRow()
	r2.Set("text", "[[CLM]] - Another claim")
	r2.Set("Status", "open")

	if got := Columns([]results.Row{r1, r2}); strings.Join(got, ",") != "text,Author,Status" {
		t.Fatalf("Columns = %v", got)
	}

	out := RenderResults(Display{Width: 80}, []results.Row{r1, r2}, 10)
	for _, want := range []string{"text", "Author", "Status", "11", "12", "Ada", "open"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "c1") || strings.Contains(out, "n7") {
		t.Fatalf("metadata columns should be hidden:\n%s", out)
	}
	if RenderResults(Display{Width: 80}, nil, 0) != "" {
		t.Fatal("no rows should render nothing")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("why is the sky blue today", 12); got != "why is the…" {
		t.Fatalf("got %q", got)
	}
	if got := FormatRowNum(3, 120); got != "  3" {
		t.Fatalf("got %q", got)
	}
}
