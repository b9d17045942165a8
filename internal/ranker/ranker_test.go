package ranker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/hscode/internal/chapter"
	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/rules"
	"github.com/harborline/hscode/internal/semantic"
	"github.com/harborline/hscode/internal/service"
)

type fakeModel struct {
	err error
}

func (f *fakeModel) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeModel) Reason(_ context.Context, _ service.ReasonRequest) (string, error) {
	return "", nil
}

type fakeCatalog struct {
	entries map[string]model.CatalogEntry
	hits    []service.SearchHit
}

func (f *fakeCatalog) GetEntry(_ context.Context, code string) (*model.CatalogEntry, error) {
	if entry, ok := f.entries[code]; ok {
		return &entry, nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrNotFound, code)
}

func (f *fakeCatalog) SearchLexical(_ context.Context, query string, limit int) ([]model.CatalogEntry, error) {
	var out []model.CatalogEntry
	for _, entry := range f.entries {
		for _, kw := range entry.Keywords {
			if strings.Contains(query, kw) {
				out = append(out, entry)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) NearestNeighbors(_ context.Context, _ []float32, k int) ([]service.SearchHit, error) {
	if k < len(f.hits) {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeCatalog) Children(_ context.Context, _ string) ([]model.CatalogEntry, error) {
	return nil, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		entries: map[string]model.CatalogEntry{
			"8708.30.00": {
				Code:        "8708.30.00",
				Description: "Brakes and servo-brakes; parts thereof",
				Keywords:    []string{"brake", "pad"},
			},
			"8708.99.00": {
				Code:        "8708.99.00",
				Description: "Other parts and accessories of motor vehicles",
				Keywords:    []string{"part"},
			},
			"5208.11.00": {
				Code:        "5208.11.00",
				Description: "Woven fabrics of cotton, unbleached, plain weave",
				Keywords:    []string{"cotton", "fabric"},
				Synonyms:    []string{"cloth"},
			},
		},
		hits: []service.SearchHit{
			{Code: "8708.30.00", Similarity: 0.9},
			{Code: "8708.99.00", Similarity: 0.6},
		},
	}
}

func newTestRanker(m service.ModelClient, cat service.CatalogStore) *Ranker {
	return New(
		chapter.NewDefaultPredictor(),
		rules.NewRegistry(rules.DefaultTrees()),
		semantic.NewRetriever(m, cat, nil),
		cat,
		nil,
	)
}

func TestRanker_Rank_BrakePad(t *testing.T) {
	r := newTestRanker(&fakeModel{}, testCatalog())

	result, err := r.Rank(context.Background(), "brake pad", nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	top := result.Candidates.Top()
	assert.Equal(t, "8708.30.00", top.Code)
	// Rule boost 85 + chapter rank-0 boost 15 guarantee the high band even
	// before the semantic base lands.
	assert.Greater(t, top.Score, 100.0)
	assert.InDelta(t, 85.0, top.RuleBoost, 0.001)
	assert.InDelta(t, chapter.BoostRank0, top.ChapterBoost, 0.001)
	assert.False(t, result.Degraded)
}

func TestRanker_Rank_NoDuplicateCodes(t *testing.T) {
	r := newTestRanker(&fakeModel{}, testCatalog())

	// brake pad is reachable via all three channels at once.
	result, err := r.Rank(context.Background(), "brake pad", nil)
	require.NoError(t, err)

	assert.NoError(t, result.Candidates.Validate())

	seen := make(map[string]bool)
	for _, cand := range result.Candidates {
		assert.False(t, seen[cand.Code], "duplicate code %s", cand.Code)
		seen[cand.Code] = true
	}
}

func TestRanker_Rank_ChannelContributionIsMaxNotSum(t *testing.T) {
	cat := testCatalog()
	// The same code twice from the semantic channel with different
	// similarities must contribute its maximum, not the sum.
	cat.hits = []service.SearchHit{
		{Code: "8708.30.00", Similarity: 0.9},
		{Code: "8708.30.00", Similarity: 0.5},
	}

	r := newTestRanker(&fakeModel{}, cat)

	result, err := r.Rank(context.Background(), "brake pad", nil)
	require.NoError(t, err)

	top := result.Candidates.Top()
	require.Equal(t, "8708.30.00", top.Code)
	assert.InDelta(t, 0.9*SemanticWeight, top.SemanticScore, 0.001)
}

func TestRanker_Rank_DegradesWithoutEmbeddings(t *testing.T) {
	r := newTestRanker(&fakeModel{err: errors.New("connection refused")}, testCatalog())

	result, err := r.Rank(context.Background(), "brake pad", nil)
	require.NoError(t, err)
	assert.True(t, result.Degraded)

	// Lexical and rule channels still carry the query.
	top := result.Candidates.Top()
	assert.Equal(t, "8708.30.00", top.Code)
	assert.Zero(t, top.SemanticScore)
}

func TestRanker_Rank_NoSignalIsNoMatch(t *testing.T) {
	cat := &fakeCatalog{entries: map[string]model.CatalogEntry{}}
	r := newTestRanker(&fakeModel{err: errors.New("down")}, cat)

	_, err := r.Rank(context.Background(), "zzzz qqqq", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoMatch)
}

func TestRanker_Rank_AnswersRaiseCottonFabric(t *testing.T) {
	cat := testCatalog()
	cat.hits = []service.SearchHit{
		{Code: "5208.11.00", Similarity: 0.5},
		{Code: "8708.99.00", Similarity: 0.5},
	}

	r := newTestRanker(&fakeModel{}, cat)

	before, err := r.Rank(context.Background(), "fabric material", nil)
	require.NoError(t, err)

	after, err := r.Rank(context.Background(), "fabric material cotton", map[string]string{
		"textile_material": "cotton",
	})
	require.NoError(t, err)

	var beforeScore, afterScore float64
	for _, cand := range before.Candidates {
		if cand.Code == "5208.11.00" {
			beforeScore = cand.Score
		}
	}
	for _, cand := range after.Candidates {
		if cand.Code == "5208.11.00" {
			afterScore = cand.Score
		}
	}

	assert.Greater(t, afterScore, beforeScore)
	assert.Equal(t, "5208.11.00", after.Candidates.Top().Code)
}

func TestRanker_Rank_KeywordBonusIsCapped(t *testing.T) {
	entry := model.CatalogEntry{
		Code:        "5208.11.00",
		Description: "Woven fabrics of cotton",
		Keywords:    []string{"cotton", "fabric", "woven", "plain", "weave", "cloth"},
	}

	bonus := keywordOverlapBonus("woven plain weave cotton fabric cloth", &entry)
	assert.InDelta(t, KeywordBonusCap, bonus, 0.001)
}

func TestRanker_Rank_SpecificityTieBreak(t *testing.T) {
	candidates := model.Candidates{
		{Code: "8708", Score: 50},
		{Code: "8708.30.00", Score: 50},
	}
	candidates.Sort()
	assert.Equal(t, "8708.30.00", candidates[0].Code)
}
