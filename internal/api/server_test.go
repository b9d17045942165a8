package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/hscode/internal/chapter"
	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/engine"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/ranker"
	"github.com/harborline/hscode/internal/rules"
	"github.com/harborline/hscode/internal/semantic"
	"github.com/harborline/hscode/internal/service"
)

type fakeModel struct{}

func (f *fakeModel) Embed(_ context.Context, _ string) ([]float32, error) {
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

type fakeFeedback struct {
	records []*model.FeedbackRecord
	saveErr error
}

func (f *fakeFeedback) SaveFeedback(_ context.Context, record *model.FeedbackRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	record.ID = int64(len(f.records) + 1)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeFeedback) GetFeedbackStats(_ context.Context) (*model.FeedbackStats, error) {
	return &model.FeedbackStats{Records: len(f.records)}, nil
}

func (f *fakeFeedback) ClearFeedback(_ context.Context) error {
	f.records = nil
	return nil
}

func brakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		entries: map[string]model.CatalogEntry{
			"8708.30.00": {
				Code:        "8708.30.00",
				Description: "Brakes and servo-brakes; parts thereof",
				Keywords:    []string{"brake", "pad"},
			},
		},
		hits: []service.SearchHit{{Code: "8708.30.00", Similarity: 0.9}},
	}
}

// ambiguousCatalog never separates, so classify always opens a question round.
func ambiguousCatalog() *fakeCatalog {
	return &fakeCatalog{
		entries: map[string]model.CatalogEntry{
			"3926.90.00": {Code: "3926.90.00", Description: "Other articles of plastics", Keywords: []string{"widget"}},
			"7326.90.00": {Code: "7326.90.00", Description: "Other articles of iron or steel", Keywords: []string{"widget"}},
		},
	}
}

func newTestServer(t *testing.T, cat service.CatalogStore, feedback service.FeedbackStore) *Server {
	t.Helper()

	m := &fakeModel{}
	registry := rules.NewRegistry(rules.DefaultTrees())
	r := ranker.New(
		chapter.NewDefaultPredictor(),
		registry,
		semantic.NewRetriever(m, cat, nil),
		cat,
		nil,
	)
	store := engine.NewMemorySessionStore()
	t.Cleanup(store.Close)

	eng := engine.New(r, registry, store, m, nil)
	return NewServer(eng, cat, feedback, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, brakeCatalog(), &fakeFeedback{})
	w := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClassify_ReturnsResult(t *testing.T) {
	s := newTestServer(t, brakeCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "ceramic brake pad set"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp engine.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, engine.ResponseResult, resp.Type)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "8708.30.00", resp.Result.Code)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestClassify_ValidationError(t *testing.T) {
	s := newTestServer(t, brakeCatalog(), &fakeFeedback{})

	// Too short for a product description.
	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "ab"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing body field entirely.
	w = doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("note", "no description"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify_NoMatch(t *testing.T) {
	s := newTestServer(t, &fakeCatalog{entries: map[string]model.CatalogEntry{}}, &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "xyzzy contraption"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestConversationFlow(t *testing.T) {
	s := newTestServer(t, ambiguousCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "steel widget"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp engine.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, engine.ResponseQuestions, resp.Type)
	require.NotEmpty(t, resp.Questions)
	id := resp.ConversationID

	// Session is resumable.
	w = doJSON(t, s, http.MethodGet, "/api/v1/conversations/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// An unknown question id is rejected without touching the session.
	w = doJSON(t, s, http.MethodPost, "/api/v1/conversations/"+id+"/answers",
		payload("answers", map[string]string{"bogus": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Skipping forces a capped result.
	w = doJSON(t, s, http.MethodPost, "/api/v1/conversations/"+id+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, engine.ResponseResult, resp.Type)
	assert.LessOrEqual(t, resp.Result.Confidence, 60.0)

	// The conversation is now terminal.
	w = doJSON(t, s, http.MethodPost, "/api/v1/conversations/"+id+"/answers",
		payload("answers", map[string]string{"generic_material": "metal"}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClassify_ResumesConversation(t *testing.T) {
	s := newTestServer(t, ambiguousCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "steel widget"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp engine.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, engine.ResponseQuestions, resp.Type)
	questionID := resp.Questions[0].ID

	// Posting to classify with a conversation id resumes instead of restarting.
	w = doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]any{
		"conversationId": resp.ConversationID,
		"answers":        map[string]string{questionID: "metal"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var next engine.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	assert.Equal(t, resp.ConversationID, next.ConversationID)
	assert.Greater(t, next.Round, resp.Round)
}

func TestAbandonConversation(t *testing.T) {
	s := newTestServer(t, ambiguousCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", payload("description", "steel widget"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp engine.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = doJSON(t, s, http.MethodDelete, "/api/v1/conversations/"+resp.ConversationID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/conversations/"+resp.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversation_NotFound(t *testing.T) {
	s := newTestServer(t, brakeCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/conversations/nope/answers",
		payload("answers", map[string]string{"q": "a"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback(t *testing.T) {
	feedback := &fakeFeedback{}
	s := newTestServer(t, brakeCatalog(), feedback)

	w := doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"classificationId": "sess-1",
		"suggestedCode":    "8708.30.00",
		"rating":           4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, feedback.records, 1)

	// Out-of-range rating is rejected.
	w = doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"classificationId": "sess-1",
		"suggestedCode":    "8708.30.00",
		"rating":           9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.FeedbackStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Records)
}

func TestCatalogLookup(t *testing.T) {
	s := newTestServer(t, brakeCatalog(), &fakeFeedback{})

	w := doJSON(t, s, http.MethodGet, "/api/v1/catalog/8708.30.00", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entry model.CatalogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "8708.30.00", entry.Code)
	assert.Empty(t, entry.Embedding)

	w = doJSON(t, s, http.MethodGet, "/api/v1/catalog/9999.99.99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// payload builds a one-field JSON body without dragging a struct into each test.
func payload(key string, value any) map[string]any {
	return map[string]any{key: value}
}
