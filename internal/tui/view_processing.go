package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderProcessing() string {
	var b strings.Builder

	label := "Analyzing"
	if a.state.revising {
		label = "Revising with your comment"
	}
	title := styleTitle.Render(a.state.spinner.View() + " " + label)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if info := a.renderDocumentInfo(); info != "" {
		b.WriteString(info)
		b.WriteString("\n\n")
	}

	var lines []string
	done := 0
	for _, st := range a.state.stages {
		status, ok := a.state.status[st.ID]
		if !ok {
			continue
		}

		var icon string
		var style lipgloss.Style
		switch status {
		case stageDone:
			icon = "[x]"
			style = lipgloss.NewStyle().Foreground(colorSuccess)
			done++
		case stageFailed:
			icon = "[!]"
			style = lipgloss.NewStyle().Foreground(colorError)
			done++
		case stageRunning:
			icon = "[>]"
			style = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
		default:
			icon = "[ ]"
			style = lipgloss.NewStyle().Foreground(colorMuted)
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %s  %s", icon, truncate(st.Title, 48))))
	}

	total := len(lines)
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	filled := int(pct * 30)
	bar := "  " +
		lipgloss.NewStyle().Foreground(colorSecondary).Render(strings.Repeat("=", filled)) +
		lipgloss.NewStyle().Foreground(colorMuted).Render(strings.Repeat("-", 30-filled)) +
		fmt.Sprintf("  %d/%d", done, total)
	lines = append(lines, "", bar)

	stagesBox := styleBox.Copy().
		Width(min(60, max(a.width-4, 20))).
		Render(strings.Join(lines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, stagesBox))
	b.WriteString("\n\n")

	if a.state.lastError != "" {
		msg := lipgloss.NewStyle().Foreground(colorError).Render(truncate(a.state.lastError, 70))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[Esc] Cancel  [?] Help")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
