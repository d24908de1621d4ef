package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aidanlsb/discourse/internal/results"
)

const (
	columnPadding = 2
	minCellWidth  = 8
)

// Columns returns the visible columns of rows, in first-seen order.
func Columns(rows []results.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for _, k := range r.VisibleKeys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// RenderResults draws rows as a borderless table numbered from offset+1.
// Cells are truncated so the table fits d.Width.
func RenderResults(d Display, rows []results.Row, offset int) string {
	if len(rows) == 0 {
		return ""
	}
	cols := Columns(rows)
	widths := columnWidths(d.Width, len(cols))

	data := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(cols)+1)
		cells[0] = FormatRowNum(offset+i+1, offset+len(rows))
		for j, c := range cols {
			v, _ := r.Get(c)
			cells[j+1] = Truncate(oneLine(results.DisplayString(v)), widths[j])
		}
		data[i] = cells
	}

	headers := append([]string{""}, cols...)
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if col < len(headers)-1 {
				style = style.PaddingRight(columnPadding)
			}
			switch {
			case row == table.HeaderRow:
				return style.Bold(true)
			case col == 0:
				return style.Inherit(Muted).Align(lipgloss.Right)
			case col == 1:
				return style.Inherit(Accent)
			}
			return style
		}).
		Rows(data...)

	return tbl.Render() + "\n"
}

// columnWidths splits the terminal width evenly over n data columns after
// the row number column.
func columnWidths(width, n int) []int {
	out := make([]int, n)
	if n == 0 {
		return out
	}
	avail := width - 6 - n*columnPadding
	each := avail / n
	if each < minCellWidth {
		each = minCellWidth
	}
	for i := range out {
		out[i] = each
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to max runes, breaking at a word boundary when one is
// close and appending an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	cut := string(r[:max-1])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// FormatRowNum right-aligns num to the width of max.
func FormatRowNum(num, max int) string {
	w := len(strconv.Itoa(max))
	if w < 2 {
		w = 2
	}
	return fmt.Sprintf("%*d", w, num)
}
