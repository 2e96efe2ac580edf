package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/logging"
)

// Completer turns one prompt into one completion. It makes exactly one
// request per call and never retries; every failure is marked
// ErrCompletionFailed with the provider's message kept.
type Completer struct {
	provider    Provider
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float64
	logger      *zap.SugaredLogger
}

// Options tune a Completer. Zero values fall back to provider defaults.
type Options struct {
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Logger      *zap.SugaredLogger
}

func NewCompleter(p Provider, opts Options) *Completer {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Completer{
		provider:    p,
		model:       opts.Model,
		timeout:     opts.Timeout,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logging.OrNop(opts.Logger),
	}
}

// Provider returns the provider name.
func (c *Completer) Provider() string { return c.provider.Name() }

// Model returns the configured model name.
func (c *Completer) Model() string { return c.model }

// Complete sends prompt and returns the model's text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	tokens := EstimateTokens(prompt)
	if limit := ContextLimit(c.model); tokens > limit {
		c.logger.Warnw("prompt may exceed model context window",
			"model", c.model, "estimated_tokens", tokens, "context_limit", limit)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Complete(ctx, NewRequest(c.model, prompt, c.maxTokens, c.temperature))
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrapf(err, "timed out after %s", c.timeout)
		}
		c.logger.Warnw("completion failed",
			"provider", c.provider.Name(), "model", c.model,
			"elapsed", elapsed, "error", err)
		return "", errors.Mark(err, errors.ErrCompletionFailed)
	}

	if strings.TrimSpace(resp.Content) == "" {
		reason := resp.FinishReason
		if reason == "" {
			reason = "unknown"
		}
		err := errors.Newf("%s returned an empty completion (finish reason: %s)", c.provider.Name(), reason)
		return "", errors.Mark(err, errors.ErrCompletionFailed)
	}

	c.logger.Infow("completion received",
		"provider", c.provider.Name(), "model", c.model,
		"estimated_prompt_tokens", tokens,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed", elapsed)
	return resp.Content, nil
}
