package llm

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens returns an approximate token count: about four bytes per
// token for Latin text, one per character for mostly multi-byte (CJK) text.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes < len(text)/2 {
		return runes
	}
	return (len(text) + 3) / 4
}

// ContextLimit returns the context window size for a model
func ContextLimit(model string) int {
	model = strings.ToLower(model)

	switch {
	case strings.Contains(model, "gemini-1.5-pro"), strings.Contains(model, "gemini-2"):
		return 2000000
	case strings.Contains(model, "gemini"):
		return 1000000
	case strings.Contains(model, "claude"):
		return 200000
	case strings.Contains(model, "gpt-4o"), strings.Contains(model, "gpt-4-turbo"), strings.Contains(model, "gpt-4.1"):
		return 128000
	case strings.Contains(model, "gpt-4-32k"), strings.Contains(model, "mixtral"):
		return 32000
	case strings.Contains(model, "gpt-4"):
		return 8000
	case strings.Contains(model, "llama-3"), strings.Contains(model, "llama3"):
		return 128000
	}

	// Default fallback
	return 8000
}
