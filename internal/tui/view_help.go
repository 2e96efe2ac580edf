package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderHelp() string {
	var b strings.Builder

	title := styleTitle.Render("Help")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	shortcuts := []string{
		"  c              Write a reviewer comment and revise",
		"  Enter          Submit the comment",
		"  Tab            Switch between original and revised",
		"  p              Save the PDF report",
		"  m              Save the Markdown report",
		"  Up/Down, PgUp  Scroll",
		"  s              Show settings",
		"  Esc            Go back / Quit",
	}
	shortcutsBox := styleBox.Copy().
		Width(min(60, max(a.width-4, 20))).
		Render(strings.Join(shortcuts, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, shortcutsBox))
	b.WriteString("\n\n")

	notes := styleSubtitle.Render("A revision recomputes only the stages that take a comment.\nEach new comment replaces the previous revision.")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, notes))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}
