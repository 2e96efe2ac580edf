// Package llm sends rendered prompts to a hosted or local language model.
package llm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sant0-9/surasura/internal/errors"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a completion request and returns the full response
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Ping checks if the provider is reachable
	Ping(ctx context.Context) error
}

// CompletionRequest represents a request to the LLM
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// CompletionResponse represents the full response
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage tracks token usage
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewRequest creates a single-turn request carrying one user prompt.
func NewRequest(model, prompt string, maxTokens int, temperature float64) *CompletionRequest {
	return &CompletionRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// defaultClient only sets an outer ceiling. The Completer bounds each call
// through the request context.
func defaultClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Minute}
}

// statusError reads a failed response body into an error. The body is
// truncated so a provider's HTML error page does not flood the screen.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	err := errors.Newf("%s error (status %d): %s", provider, resp.StatusCode, msg)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.WithHint(err, "check the API key for this provider")
	case http.StatusTooManyRequests:
		return errors.WithHint(err, "the provider is rate limiting requests; wait and try again")
	}
	return err
}
