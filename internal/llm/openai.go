package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborline/hscode/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIProvider implements the provider interface against an
// OpenAI-compatible HTTP API.
type openAIProvider struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
}

// newOpenAIProvider creates a provider for the OpenAI embeddings and chat
// completion endpoints.
func newOpenAIProvider(cfg Config) (provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openAIProvider{
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		model:          model,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// embed requests an embedding vector for the given text.
func (p *openAIProvider) embed(ctx context.Context, text string) ([]float32, error) {
	requestBody := map[string]any{
		"model": p.embeddingModel,
		"input": text,
	}

	body, err := p.post(ctx, p.baseURL+"/embeddings", requestBody)
	if err != nil {
		return nil, err
	}

	var response openAIEmbeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return response.Data[0].Embedding, nil
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// reason requests a short narrative for the ranked candidates.
func (p *openAIProvider) reason(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a customs classification assistant. Reply with a short plain-text justification only.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": 0.2,
		"max_tokens":  200,
	}

	body, err := p.post(ctx, p.baseURL+"/chat/completions", requestBody)
	if err != nil {
		return "", err
	}

	var response openAIChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return response.Choices[0].Message.Content, nil
}

// post sends a JSON request and returns the response body, classifying
// failures for the retry layer.
func (p *openAIProvider) post(ctx context.Context, url string, requestBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", common.ErrRateLimit, string(body))
	case resp.StatusCode >= 500:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("model API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: true,
		}
	default:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("model API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}
}

// isTimeout reports whether an error is a network timeout.
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
