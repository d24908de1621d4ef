package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
)

// DefaultTermWidth is used when stdout is not a terminal.
const DefaultTermWidth = 120

const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
)

// Display describes the output terminal.
type Display struct {
	Width int
	IsTTY bool
}

// DetectDisplay inspects stdout.
func DetectDisplay() Display {
	fd := os.Stdout.Fd()
	d := Display{Width: DefaultTermWidth, IsTTY: term.IsTerminal(fd)}
	if d.IsTTY {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			d.Width = w
		}
	}
	return d
}

// Successf formats a line prefixed with a check mark.
func Successf(format string, args ...interface{}) string {
	return SymbolSuccess + " " + fmt.Sprintf(format, args...)
}

// Warningf formats a line prefixed with a warning sign.
func Warningf(format string, args ...interface{}) string {
	return SymbolWarning + " " + fmt.Sprintf(format, args...)
}

// Errorf formats a line prefixed with a cross.
func Errorf(format string, args ...interface{}) string {
	return SymbolError + " " + fmt.Sprintf(format, args...)
}

// Header renders a section header.
func Header(msg string) string { return Bold.Render(msg) }

// Hint renders secondary text.
func Hint(msg string) string { return Muted.Render(msg) }

// Count renders "(n noun)" with a naive plural.
func Count(n int, noun string) string {
	if n != 1 {
		noun += "s"
	}
	return fmt.Sprintf("(%d %s)", n, noun)
}
