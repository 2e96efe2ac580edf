package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorMuted  = lipgloss.Color("#6B7280")
	colorError  = lipgloss.Color("#EF4444")

	styleHeading = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleAbsent  = lipgloss.NewStyle().Foreground(colorError).Italic(true)
	styleNote    = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
	styleBorder  = lipgloss.NewStyle().Foreground(colorMuted)
)

// Terminal renders sections for a terminal of the given width. Tables are
// drawn with borders and wrapped cells.
func Terminal(sections []Section, width int) string {
	if width < 20 {
		width = 80
	}
	text := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styleHeading.Render("▌ "+s.Title) + "\n\n")

		if s.Absent {
			for _, p := range s.Body.Paragraphs {
				b.WriteString(styleAbsent.Width(width).Render(p) + "\n")
			}
			continue
		}
		if s.Body.Table != nil {
			b.WriteString(terminalTable(s.Body.Table, width) + "\n")
		}
		for _, p := range s.Body.Paragraphs {
			b.WriteString(text.Render(p) + "\n")
		}
		if len(s.Body.Trailing) > 0 {
			b.WriteString("\n")
			for _, p := range s.Body.Trailing {
				b.WriteString(text.Render(p) + "\n")
			}
		}
		if s.Malformed {
			b.WriteString(styleNote.Render("(the model's table could not be parsed)") + "\n")
		}
	}
	return b.String()
}

func terminalTable(t *Table, width int) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styleBorder).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Headers(t.Header...).
		Rows(t.Rows...).
		Width(width).
		String()
}
