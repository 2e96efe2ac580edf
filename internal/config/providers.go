package config

type ProviderInfo struct {
	ID           string
	Name         string
	Description  string
	NeedsAPIKey  bool
	EnvKey       string
	SignupURL    string
	BaseURL      string
	Models       []string
	DefaultModel string
}

var Providers = []ProviderInfo{
	{
		ID:           "gemini",
		Name:         "Google Gemini",
		Description:  "Default, long context",
		NeedsAPIKey:  true,
		EnvKey:       "GOOGLE_API_KEY",
		SignupURL:    "https://aistudio.google.com/app/apikey",
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
		Models:       []string{"gemini-1.5-pro-latest", "gemini-1.5-flash", "gemini-2.0-flash"},
		DefaultModel: "gemini-1.5-pro-latest",
	},
	{
		ID:           "openai",
		Name:         "OpenAI-compatible",
		Description:  "OpenAI, Groq, OpenRouter or any compatible endpoint",
		NeedsAPIKey:  true,
		EnvKey:       "OPENAI_API_KEY",
		SignupURL:    "https://platform.openai.com/api-keys",
		BaseURL:      "https://api.openai.com/v1",
		Models:       []string{"gpt-4o", "gpt-4o-mini"},
		DefaultModel: "gpt-4o-mini",
	},
	{
		ID:           "anthropic",
		Name:         "Anthropic",
		Description:  "Claude, great writing",
		NeedsAPIKey:  true,
		EnvKey:       "ANTHROPIC_API_KEY",
		SignupURL:    "https://console.anthropic.com/",
		BaseURL:      "https://api.anthropic.com/v1",
		Models:       []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
		DefaultModel: "claude-3-5-sonnet-20241022",
	},
	{
		ID:           "ollama",
		Name:         "Ollama",
		Description:  "Local, free, private",
		NeedsAPIKey:  false,
		BaseURL:      "http://localhost:11434",
		Models:       []string{"llama3.1:8b", "qwen2.5:7b", "mistral:7b"},
		DefaultModel: "llama3.1:8b",
	},
}

func GetProvider(id string) *ProviderInfo {
	for _, p := range Providers {
		if p.ID == id {
			return &p
		}
	}
	return nil
}
