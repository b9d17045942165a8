// Package semantic implements the embedding-based retrieval channel: query
// text to vector, vector to nearest catalog entries.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/service"
)

// Default retrieval settings.
const (
	DefaultTopK    = 30
	DefaultTimeout = 10 * time.Second
)

// Retriever performs embedding lookup and nearest-neighbor search. It is the
// only retrieval channel with blocking I/O; callers should treat its failures
// as graceful degradation, not request failure.
type Retriever struct {
	model   service.ModelClient
	catalog service.CatalogStore
	logger  *slog.Logger
	topK    int
	timeout time.Duration
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK sets how many neighbors to request.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithTimeout bounds the embedding plus index lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRetriever creates a semantic retriever over a model client and the
// catalog's embedding index.
func NewRetriever(model service.ModelClient, catalog service.CatalogStore, logger *slog.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Retriever{
		model:   model,
		catalog: catalog,
		logger:  logger,
		topK:    DefaultTopK,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and returns the top-K nearest catalog entries,
// ordered by similarity descending with ties broken by code ascending.
// Embedding failures surface as ErrEmbeddingUnavailable and timeouts as
// ErrUpstreamTimeout so the caller can degrade the channel to empty output.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]service.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vector, err := r.model.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, common.ErrUpstreamTimeout) {
			return nil, fmt.Errorf("%w: embedding: %v", common.ErrUpstreamTimeout, err)
		}
		r.logger.Warn("embedding unavailable, semantic channel degraded", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
	}

	hits, err := r.catalog.NearestNeighbors(ctx, vector, r.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: index lookup: %v", common.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("nearest-neighbor search failed: %w", err)
	}

	return hits, nil
}
