// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/harborline/hscode/internal/model"
)

// SearchHit is one result of a nearest-neighbor catalog search. Similarity is
// normalized to [0,1].
type SearchHit struct {
	Code       string
	Similarity float64
}

// CatalogStore defines the contract for the read-only commodity-code catalog.
// The catalog and its embeddings are precomputed; nothing here mutates them.
type CatalogStore interface {
	// GetEntry returns the catalog entry for a code, or common.ErrNotFound.
	GetEntry(ctx context.Context, code string) (*model.CatalogEntry, error)
	// SearchLexical returns entries whose description, keywords or synonyms
	// contain terms of the query, up to limit.
	SearchLexical(ctx context.Context, query string, limit int) ([]model.CatalogEntry, error)
	// NearestNeighbors returns the k entries closest to the query vector,
	// ordered by similarity descending, ties broken by code ascending.
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]SearchHit, error)
	// Children returns the direct children of a code.
	Children(ctx context.Context, code string) ([]model.CatalogEntry, error)
}

// ReasonRequest carries the context the model needs to narrate a final answer.
type ReasonRequest struct {
	Description string
	Candidates  model.Candidates
	Answers     map[string]string
}

// ModelClient defines the contract for the external language-model service.
// Both calls are unreliable network calls and must be treated as fallible.
type ModelClient interface {
	// Embed converts text into a fixed-length embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Reason produces a short natural-language justification for the top
	// candidate. Optional; implementations may return "" without error.
	Reason(ctx context.Context, req ReasonRequest) (string, error)
}

// SessionStore defines the lifecycle of conversation sessions. Implementations
// must be safe for concurrent use across different session ids; the
// orchestrator guarantees single-writer access per id.
type SessionStore interface {
	Create(ctx context.Context, session *model.ConversationSession) error
	Get(ctx context.Context, id string) (*model.ConversationSession, error)
	Update(ctx context.Context, session *model.ConversationSession) error
	Delete(ctx context.Context, id string) error
}

// FeedbackStore defines the append-only feedback sink and its aggregate reads.
// It is never consulted on the classification path.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error
	GetFeedbackStats(ctx context.Context) (*model.FeedbackStats, error)
	ClearFeedback(ctx context.Context) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
