package semantic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/service"
)

type stubModel struct {
	vector []float32
	err    error
}

func (s *stubModel) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vector, s.err
}

func (s *stubModel) Reason(_ context.Context, _ service.ReasonRequest) (string, error) {
	return "", nil
}

type stubCatalog struct {
	hits []service.SearchHit
	err  error
}

func (s *stubCatalog) GetEntry(_ context.Context, code string) (*model.CatalogEntry, error) {
	return nil, fmt.Errorf("%w: %s", common.ErrNotFound, code)
}

func (s *stubCatalog) SearchLexical(_ context.Context, _ string, _ int) ([]model.CatalogEntry, error) {
	return nil, nil
}

func (s *stubCatalog) NearestNeighbors(_ context.Context, _ []float32, k int) ([]service.SearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func (s *stubCatalog) Children(_ context.Context, _ string) ([]model.CatalogEntry, error) {
	return nil, nil
}

func TestRetriever_Retrieve(t *testing.T) {
	hits := []service.SearchHit{
		{Code: "8708.30.00", Similarity: 0.91},
		{Code: "8708.99.00", Similarity: 0.74},
	}

	r := NewRetriever(
		&stubModel{vector: []float32{1, 0}},
		&stubCatalog{hits: hits},
		nil,
	)

	got, err := r.Retrieve(context.Background(), "brake pad")
	require.NoError(t, err)
	assert.Equal(t, hits, got)
}

func TestRetriever_Retrieve_EmbeddingFailureDegrades(t *testing.T) {
	r := NewRetriever(
		&stubModel{err: errors.New("connection refused")},
		&stubCatalog{},
		nil,
	)

	got, err := r.Retrieve(context.Background(), "brake pad")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEmbeddingUnavailable)
}

func TestRetriever_Retrieve_TimeoutSurfacesAsUpstreamTimeout(t *testing.T) {
	r := NewRetriever(
		&stubModel{err: fmt.Errorf("%w: embeddings", common.ErrUpstreamTimeout)},
		&stubCatalog{},
		nil,
	)

	_, err := r.Retrieve(context.Background(), "brake pad")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamTimeout)
}

func TestRetriever_Retrieve_RespectsTopK(t *testing.T) {
	hits := []service.SearchHit{
		{Code: "8708.30.00", Similarity: 0.9},
		{Code: "8708.93.00", Similarity: 0.8},
		{Code: "8708.99.00", Similarity: 0.7},
	}

	r := NewRetriever(
		&stubModel{vector: []float32{1}},
		&stubCatalog{hits: hits},
		nil,
		WithTopK(2),
	)

	got, err := r.Retrieve(context.Background(), "brake pad")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

type slowModel struct{}

func (slowModel) Embed(ctx context.Context, _ string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return []float32{1}, nil
	}
}

func (slowModel) Reason(_ context.Context, _ service.ReasonRequest) (string, error) {
	return "", nil
}

func TestRetriever_Retrieve_TimeoutBudget(t *testing.T) {
	r := NewRetriever(slowModel{}, &stubCatalog{}, nil, WithTimeout(10*time.Millisecond))

	_, err := r.Retrieve(context.Background(), "brake pad")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamTimeout)
}
