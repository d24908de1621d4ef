package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

const defaultCodeTheme = "monokai"

var markdownCodeTheme = defaultCodeTheme

var knownCodeThemes = map[string]bool{
	"monokai": true, "dracula": true, "github": true, "nord": true,
	"solarized-dark": true, "solarized-light": true, "gruvbox": true,
}

// ConfigureMarkdownCodeTheme applies the [ui] code_theme setting. Unknown
// themes fall back to the default.
func ConfigureMarkdownCodeTheme(theme string) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if !knownCodeThemes[theme] {
		theme = defaultCodeTheme
	}
	markdownCodeTheme = theme
}

// RenderMarkdown renders markdown for the terminal, wrapped to width.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

func markdownStyle() ansi.StyleConfig {
	style := styles.NoTTYStyleConfig
	if accent, ok := AccentColor(); ok {
		style.Heading.Color = &accent
		style.Link.Color = &accent
	}
	bold := true
	style.Heading.Bold = &bold
	style.Item.BlockPrefix = "• "
	style.CodeBlock.Theme = markdownCodeTheme
	return style
}

// Outline renders blocks as a nested markdown bullet list. Heading blocks
// keep their level as a markdown heading prefix.
func Outline(sb *strings.Builder, depth int, text string, heading int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	if heading > 0 {
		sb.WriteString(strings.Repeat("#", heading))
		sb.WriteString(" ")
	}
	sb.WriteString(strings.ReplaceAll(text, "\n", " "))
	sb.WriteString("\n")
}
