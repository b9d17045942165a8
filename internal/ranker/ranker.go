// Package ranker merges the lexical, rule and semantic retrieval channels
// into a single ranked candidate list.
package ranker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/harborline/hscode/internal/chapter"
	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/rules"
	"github.com/harborline/hscode/internal/semantic"
	"github.com/harborline/hscode/internal/service"
)

// Scoring constants. The semantic base is deliberately below 100 so that a
// pure-similarity hit cannot out-rank a strong rule match that the chapter
// prediction agrees with.
const (
	SemanticWeight     = 70.0
	KeywordBonusPerHit = 3.0
	KeywordBonusCap    = 12.0
	DefaultTopN        = 50
	lexicalLimit       = 25
)

// Ranker fans a query out to the three retrieval channels and fuses the
// results into one deduplicated, scored candidate list.
type Ranker struct {
	predictor *chapter.Predictor
	registry  *rules.Registry
	retriever *semantic.Retriever
	catalog   service.CatalogStore
	logger    *slog.Logger
	topN      int
}

// New creates a ranker over the given channels.
func New(predictor *chapter.Predictor, registry *rules.Registry, retriever *semantic.Retriever, catalog service.CatalogStore, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		predictor: predictor,
		registry:  registry,
		retriever: retriever,
		catalog:   catalog,
		logger:    logger,
		topN:      DefaultTopN,
	}
}

// Result carries the fused candidate list together with the chapter
// prediction that shaped it.
type Result struct {
	Candidates  model.Candidates
	Predictions []model.ChapterPrediction
	Degraded    bool
}

// Rank runs all three channels concurrently, joins them, and returns the
// fused candidate list sorted by composite score. The semantic channel
// degrades to empty output on embedding failure or timeout; if every channel
// comes back empty the result is ErrNoMatch rather than a fabricated top-1.
func (r *Ranker) Rank(ctx context.Context, query string, answers map[string]string) (*Result, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))

	var (
		predictions []model.ChapterPrediction
		ruleMatches []rules.Match
		semHits     []service.SearchHit
		lexical     []model.CatalogEntry
		degraded    bool
	)

	// Barrier join: the pure channels finish in microseconds, but ranking
	// needs all three before fusion.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		predictions = r.predictor.Predict(normalized)
		return nil
	})

	g.Go(func() error {
		ruleMatches = r.evaluateRules(normalized, answers)
		return nil
	})

	g.Go(func() error {
		hits, err := r.retriever.Retrieve(gctx, normalized)
		if err != nil {
			if errors.Is(err, common.ErrEmbeddingUnavailable) || errors.Is(err, common.ErrUpstreamTimeout) {
				r.logger.Warn("semantic channel degraded to empty output", "error", err)
				degraded = true
				return nil
			}
			return err
		}
		semHits = hits
		return nil
	})

	g.Go(func() error {
		entries, err := r.catalog.SearchLexical(gctx, normalized, lexicalLimit)
		if err != nil {
			return err
		}
		lexical = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := r.fuse(ctx, normalized, predictions, ruleMatches, semHits, lexical)
	if len(candidates) == 0 {
		return nil, common.ErrNoMatch
	}

	return &Result{
		Candidates:  candidates,
		Predictions: predictions,
		Degraded:    degraded,
	}, nil
}

// evaluateRules runs every registered decision tree. Answer-equality rules
// only fire for question ids actually present in the answer map, so
// evaluating all domains is safe; duplicate codes across trees take the
// maximum boost.
func (r *Ranker) evaluateRules(query string, answers map[string]string) []rules.Match {
	byCode := make(map[string]*rules.Match)
	var order []string

	for _, domain := range r.registry.Domains() {
		engine := rules.NewEngine(r.registry.ForDomain(domain))
		for _, m := range engine.Evaluate(query, answers) {
			existing, ok := byCode[m.Code]
			if !ok {
				match := m
				byCode[m.Code] = &match
				order = append(order, m.Code)
				continue
			}
			existing.Rules = append(existing.Rules, m.Rules...)
			if m.Boost > existing.Boost {
				existing.Boost = m.Boost
			}
		}
	}

	matches := make([]rules.Match, 0, len(order))
	for _, code := range order {
		matches = append(matches, *byCode[code])
	}
	return matches
}

// fuse merges the channel outputs by code and computes composite scores.
func (r *Ranker) fuse(ctx context.Context, query string, predictions []model.ChapterPrediction, ruleMatches []rules.Match, semHits []service.SearchHit, lexical []model.CatalogEntry) model.Candidates {
	merged := make(map[string]*model.Candidate)
	entries := make(map[string]*model.CatalogEntry)
	var order []string

	ensure := func(code string, matchType model.MatchType) *model.Candidate {
		if cand, ok := merged[code]; ok {
			if cand.MatchType != matchType {
				cand.MatchType = model.MatchFused
			}
			return cand
		}
		cand := &model.Candidate{Code: code, MatchType: matchType}
		merged[code] = cand
		order = append(order, code)
		return cand
	}

	for _, hit := range semHits {
		cand := ensure(hit.Code, model.MatchSemantic)
		// Max, not sum: a code reachable twice through one channel must not
		// double-count that channel.
		if base := hit.Similarity * SemanticWeight; base > cand.SemanticScore {
			cand.SemanticScore = base
		}
	}

	for _, m := range ruleMatches {
		cand := ensure(m.Code, model.MatchRule)
		if m.Boost > cand.RuleBoost {
			cand.RuleBoost = m.Boost
		}
	}

	for i := range lexical {
		entry := &lexical[i]
		ensure(entry.Code, model.MatchLexical)
		entries[entry.Code] = entry
	}

	for _, code := range order {
		cand := merged[code]

		entry, ok := entries[code]
		if !ok {
			loaded, err := r.catalog.GetEntry(ctx, code)
			if err == nil {
				entry = loaded
				entries[code] = loaded
			}
		}
		if entry != nil {
			cand.Description = entry.Description
			cand.KeywordBonus = keywordOverlapBonus(query, entry)
		}

		cand.ChapterBoost = chapter.BoostFor(predictions, code)

		score := cand.SemanticScore + cand.ChapterBoost + cand.RuleBoost + cand.KeywordBonus
		if score < 0 {
			score = 0
		}
		cand.Score = score
	}

	candidates := make(model.Candidates, 0, len(order))
	for _, code := range order {
		candidates = append(candidates, *merged[code])
	}

	return candidates.TopN(r.topN)
}

// keywordOverlapBonus counts literal keyword and synonym hits from the
// catalog entry against the query, capped so lexical noise cannot dominate.
func keywordOverlapBonus(query string, entry *model.CatalogEntry) float64 {
	hits := 0
	for _, kw := range entry.Keywords {
		if kw != "" && strings.Contains(query, strings.ToLower(kw)) {
			hits++
		}
	}
	for _, syn := range entry.Synonyms {
		if syn != "" && strings.Contains(query, strings.ToLower(syn)) {
			hits++
		}
	}

	bonus := float64(hits) * KeywordBonusPerHit
	if bonus > KeywordBonusCap {
		bonus = KeywordBonusCap
	}
	return bonus
}
