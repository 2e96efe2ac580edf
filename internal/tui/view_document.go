package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Lines the result view reserves around the viewport.
const (
	headerLines = 4
	footerLines = 5
)

// renderDocumentInfo is the one-line document header shared by the views.
func (a *App) renderDocumentInfo() string {
	doc := a.state.document
	if doc == nil {
		return ""
	}
	meta := doc.Metadata

	var parts []string
	parts = append(parts, strings.ToUpper(meta.SourceFormat))
	if meta.PageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", meta.PageCount))
	}
	if meta.FileSizeBytes > 0 {
		parts = append(parts, meta.FileSizeHuman())
	}
	parts = append(parts, fmt.Sprintf("~%d words", meta.WordCount))

	name := styleTitle.Render(truncate(doc.Name, max(a.width-10, 20)))
	info := styleSubtitle.Render(strings.Join(parts, "  |  "))
	return lipgloss.PlaceHorizontal(a.width, lipgloss.Center, name) + "\n" +
		lipgloss.PlaceHorizontal(a.width, lipgloss.Center, info)
}
