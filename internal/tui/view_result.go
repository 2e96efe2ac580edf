package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderResult() string {
	var b strings.Builder

	// Header: document, which pass is shown, scroll position
	b.WriteString(a.renderDocumentInfo())
	b.WriteString("\n")

	pass := "Original analysis"
	if a.state.showRevised && a.state.revision != nil {
		pass = "Revised analysis"
	}
	if run := a.state.original; run != nil {
		if n := len(run.Failed()); n > 0 && !a.state.showRevised {
			pass += fmt.Sprintf("  (%d stage(s) unavailable)", n)
		}
	}
	header := styleTitle.Render(pass) + styleSubtitle.Render(fmt.Sprintf("  %3.0f%%", a.state.viewport.ScrollPercent()*100))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, header))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(a.state.viewport.View()))
	b.WriteString("\n")

	if a.state.commenting {
		inputBox := styleBox.Copy().
			Width(min(74, max(a.width-4, 20))).
			BorderForeground(colorPrimary).
			Render(a.state.comment.View())
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, inputBox))
		b.WriteString("\n")
	}

	if a.state.notice != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleNotice.Render(truncate(a.state.notice, max(a.width-4, 20)))))
		b.WriteString("\n")
	}

	var status string
	if a.state.commenting {
		status = "[Enter] Revise  [Esc] Cancel"
	} else {
		parts := []string{"[c] Comment", "[p] Save PDF", "[m] Save Markdown"}
		if a.state.revision != nil {
			parts = append(parts, "[Tab] Original/Revised")
		}
		parts = append(parts, "[?] Help", "[Esc] Quit")
		status = strings.Join(parts, "  ")
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleStatusBar.Render(status)))

	return b.String()
}
