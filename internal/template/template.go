// Package template fills node templates: the block outlines a new node page
// starts with.
package template

import (
	"strings"
	"time"

	"github.com/aidanlsb/discourse/internal/dates"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// Variables holds the values available to {{name}} placeholders.
type Variables struct {
	// Title is the full page title, e.g. "[[CLM]] - Sky is blue".
	Title string
	// Content is the text substituted into the node format.
	Content string
	// Type is the node type id.
	Type string
	// Date is today's daily page title ("October 19th, 2026").
	Date string
	// ISODate is today as YYYY-MM-DD.
	ISODate string
	Weekday string
	User    string
}

// NewVariables creates Variables for a new node page of type n.
func NewVariables(n vocab.Node, content, user string, now time.Time) *Variables {
	return &Variables{
		Title:   vocab.FillFormat(n.Format, content),
		Content: content,
		Type:    n.Type,
		Date:    dates.FormatDailyTitle(now),
		ISODate: now.Format(dates.DateLayout),
		Weekday: now.Weekday().String(),
		User:    user,
	}
}

const (
	escOpen  = "\x00TPL_OPEN\x00"
	escClose = "\x00TPL_CLOSE\x00"
)

// Apply substitutes {{name}} variables in text. Unknown variables are left
// as-is and \{{name}} yields a literal {{name}}.
func Apply(text string, vars *Variables) string {
	if text == "" || vars == nil {
		return text
	}
	text = strings.ReplaceAll(text, `\{{`, escOpen)
	text = strings.ReplaceAll(text, `\}}`, escClose)

	text = strings.NewReplacer(
		"{{title}}", vars.Title,
		"{{content}}", vars.Content,
		"{{type}}", vars.Type,
		"{{date}}", "[["+vars.Date+"]]",
		"{{isodate}}", vars.ISODate,
		"{{weekday}}", vars.Weekday,
		"{{user}}", vars.User,
	).Replace(text)

	text = strings.ReplaceAll(text, escOpen, "{{")
	return strings.ReplaceAll(text, escClose, "}}")
}

// Blocks turns template lines into a block tree. Each two spaces (or tab) of
// indentation nests a line one level under the previous shallower line; a
// leading "- " bullet is dropped. Blank lines are skipped.
func Blocks(lines []string, vars *Variables) []factstore.Block {
	type frame struct {
		depth int
		block *factstore.Block
	}
	var roots []factstore.Block
	var stack []frame

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth := indentDepth(line)
		text := strings.TrimSpace(line)
		text = strings.TrimPrefix(text, "- ")
		b := factstore.Block{String: Apply(text, vars)}

		// The stack only ever holds the current ancestor chain, so its pointers
		// stay valid while siblings are appended.
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, b)
			stack = append(stack[:0], frame{depth: depth, block: &roots[len(roots)-1]})
			continue
		}
		parent := stack[len(stack)-1].block
		parent.Children = append(parent.Children, b)
		stack = append(stack, frame{depth: depth, block: &parent.Children[len(parent.Children)-1]})
	}
	return roots
}

func indentDepth(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case ' ':
			spaces++
		case '\t':
			spaces += 2
		default:
			return spaces / 2
		}
	}
	return spaces / 2
}
