package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/surasura/internal/config"
)

func (a *App) renderSettings() string {
	var b strings.Builder

	title := styleTitle.Render("Settings")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	cfg := a.state.config.Redacted()
	providerName := cfg.Provider
	if p := config.GetProvider(cfg.Provider); p != nil {
		providerName = p.Name
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "Not set"
	}

	configLines := []string{
		fmt.Sprintf("  Provider:     %s", providerName),
		fmt.Sprintf("  Model:        %s", cfg.Model),
		fmt.Sprintf("  API Key:      %s", apiKey),
		fmt.Sprintf("  Template set: %s", a.state.session.Pipeline().Registry().Set()),
		fmt.Sprintf("  Language:     %s", cfg.Templates.Language),
		fmt.Sprintf("  Timeout:      %ds", cfg.LLM.TimeoutSeconds),
		fmt.Sprintf("  Output dir:   %s", a.outDir),
	}
	if cfg.Report.FontPath != "" {
		configLines = append(configLines, fmt.Sprintf("  Report font:  %s", cfg.Report.FontPath))
	}

	configBox := styleBox.Copy().
		Width(min(70, max(a.width-4, 20))).
		Render(strings.Join(configLines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, configBox))
	b.WriteString("\n\n")

	hint := styleSubtitle.Render("Change these with `surasura config set` or ~/.config/surasura/config.yaml")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, hint))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}
