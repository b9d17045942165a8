package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/service"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) Config {
	return Config{
		Provider:   "openai",
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		RateLimit:  6000,
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "openai provider with key",
			cfg:  Config{Provider: "openai", APIKey: "key"},
		},
		{
			name:    "openai provider without key",
			cfg:     Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name: "local provider needs no key",
			cfg:  Config{Provider: "local"},
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestClient_Embed(t *testing.T) {
	var calls atomic.Int32
	server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	})

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	vector, err := client.Embed(context.Background(), "brake pad")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)

	// Second call for the same text is served from the cache.
	vector, err = client.Embed(context.Background(), "brake pad")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Embed_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{1, 0}},
			},
		})
	})

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	vector, err := client.Embed(context.Background(), "cotton fabric")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Embed_ExhaustsRetries(t *testing.T) {
	server := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "cotton fabric")
	assert.Error(t, err)
}

func TestClient_Embed_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "cotton fabric")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Reason(t *testing.T) {
	server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "brake pad")
		assert.Contains(t, req.Messages[1].Content, "8708.30.00")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  Brake pads are vehicle parts under heading 8708.  "}},
			},
		})
	})

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	explanation, err := client.Reason(context.Background(), service.ReasonRequest{
		Description: "brake pad",
		Candidates: model.Candidates{
			{Code: "8708.30.00", Description: "Brakes and parts thereof", Score: 92},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Brake pads are vehicle parts under heading 8708.", explanation)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p := newLocalProvider()

	a, err := p.embed(context.Background(), "cotton fabric")
	require.NoError(t, err)
	b, err := p.embed(context.Background(), "cotton fabric")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, localDimensions)

	c, err := p.embed(context.Background(), "steel bolt")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestClient_Embed_BlocksWhenRateLimited(t *testing.T) {
	// One request per minute with a burst of one: the first call drains
	// the bucket, the second waits on the limiter until its context
	// expires.
	client, err := NewClient(Config{Provider: "local", RateLimit: 1}, nil)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "cotton fabric")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Embed(ctx, "steel bolt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter canceled")
}

func TestEmbeddingCache_Expiry(t *testing.T) {
	cache := newEmbeddingCache(10 * time.Millisecond)
	cache.set("query", []float32{1})

	_, found := cache.get("query")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = cache.get("query")
	assert.False(t, found)
}
