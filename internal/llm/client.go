// Package llm provides clients for the external language-model service used
// for text embeddings and final-answer narration.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/service"
)

// provider is the raw transport behind a Client: one embedding call and one
// chat-style reasoning call, no retry or rate limiting.
type provider interface {
	embed(ctx context.Context, text string) ([]float32, error)
	reason(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for the model client.
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
	RateLimit      int
	Timeout        time.Duration
}

// Client implements service.ModelClient with retry, rate limiting and an
// embedding cache layered over a raw provider.
type Client struct {
	provider  provider
	cache     *embeddingCache
	limiter   *rate.Limiter
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewClient creates a model client for the configured provider.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	var p provider
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		p, err = newOpenAIProvider(cfg)
	case "local":
		p = newLocalProvider()
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 500 * time.Millisecond
	}

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 60
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		provider:  p,
		cache:     newEmbeddingCache(cfg.CacheTTL),
		limiter:   rate.NewLimiter(rate.Limit(float64(rps)/60.0), rps),
		logger:    logger,
		retryOpts: retryOpts,
	}, nil
}

// Embed converts text into an embedding vector. Results are cached by text;
// transport failures are retried with backoff before surfacing.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, found := c.cache.get(text); found {
		c.logger.Debug("embedding cache hit", "text_len", len(text))
		return vector, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter canceled: %w", err)
	}

	var vector []float32
	err := common.WithRetry(ctx, func() error {
		var embedErr error
		vector, embedErr = c.provider.embed(ctx, text)
		return embedErr
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	c.cache.set(text, vector)
	return vector, nil
}

// Reason produces a short natural-language justification for the ranked
// candidates. A provider that cannot narrate returns "" without error.
func (c *Client) Reason(ctx context.Context, req service.ReasonRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter canceled: %w", err)
	}

	prompt := buildReasonPrompt(req)

	var explanation string
	err := common.WithRetry(ctx, func() error {
		var reasonErr error
		explanation, reasonErr = c.provider.reason(ctx, prompt)
		return reasonErr
	}, c.retryOpts)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(explanation), nil
}

// buildReasonPrompt renders the reasoning request into a single prompt.
func buildReasonPrompt(req service.ReasonRequest) string {
	var b strings.Builder
	b.WriteString("Explain in two sentences why the top commodity code fits the product.\n")
	b.WriteString("Product: ")
	b.WriteString(req.Description)
	b.WriteString("\nCandidates:\n")
	for i, cand := range req.Candidates {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s), score %.1f\n", cand.Code, cand.Description, cand.Score)
	}
	if len(req.Answers) > 0 {
		b.WriteString("Clarifications:\n")
		for q, a := range req.Answers {
			fmt.Fprintf(&b, "- %s: %s\n", q, a)
		}
	}
	return b.String()
}
