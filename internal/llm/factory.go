package llm

import (
	"time"

	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/errors"
)

// NewProvider creates a provider from config
func NewProvider(cfg *config.Config) (Provider, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, errors.Newf("unknown provider: %s", cfg.Provider)
	}
}

// NewFromConfig builds the provider and wraps it in a Completer with the
// llm section's timeout and sampling settings.
func NewFromConfig(cfg *config.Config, logger *zap.SugaredLogger) (*Completer, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewCompleter(p, Options{
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	}), nil
}
