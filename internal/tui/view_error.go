package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/surasura/internal/errors"
)

func (a *App) renderError() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Render("Something went wrong")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	errMsg := "Unknown error"
	if a.state.err != nil {
		errMsg = errors.Message(a.state.err)
	}

	errBox := styleBox.Copy().
		Width(min(60, max(a.width-4, 20))).
		BorderForeground(colorError).
		Render(errMsg)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, errBox))
	b.WriteString("\n\n")

	if suggestions := suggestionsFor(a.state.err); len(suggestions) > 0 {
		suggBox := styleBox.Copy().
			Width(min(60, max(a.width-4, 20))).
			BorderForeground(colorMuted).
			Render("Suggestions:\n" + strings.Join(suggestions, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, suggBox))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[Esc] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

func suggestionsFor(err error) []string {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, errors.ErrEmptyDocument):
		return []string{"The PDF has no text layer.", "Run it through OCR first, or submit the web page instead."}
	case errors.Is(err, errors.ErrUnreadableSource):
		return []string{"Check the file path or URL.", "Make sure the file is a PDF and not password protected."}
	case strings.Contains(lower, "api key") || strings.Contains(lower, "401"):
		return []string{"Check your API key in ~/.config/surasura/config.yaml", "or set GOOGLE_API_KEY in .env"}
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		return []string{"You've hit the API rate limit", "Wait a moment and try again"}
	case strings.Contains(lower, "connect") || strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return []string{"Check your internet connection", "Or try Ollama for offline use"}
	}
	return nil
}
