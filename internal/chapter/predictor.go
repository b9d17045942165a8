// Package chapter implements the lexical chapter predictor: a heuristic that
// maps free product text to a ranked list of likely tariff chapters.
package chapter

import (
	"sort"
	"strings"

	"github.com/harborline/hscode/internal/model"
)

// Rank-position boosts applied to candidates whose chapter appears in the
// prediction, and the penalty for chapters absent from a non-empty prediction.
const (
	BoostRank0    = 15.0
	BoostRank1    = 10.0
	BoostRank2    = 5.0
	BoostOther    = 2.0
	PenaltyAbsent = -5.0
)

// Predictor scores chapters by lexical trigger matches with functional
// overrides layered on top.
type Predictor struct {
	patterns  []model.ChapterPattern
	overrides []model.FunctionalOverride
}

// NewPredictor creates a predictor over the given static configuration.
func NewPredictor(patterns []model.ChapterPattern, overrides []model.FunctionalOverride) *Predictor {
	return &Predictor{
		patterns:  patterns,
		overrides: overrides,
	}
}

// NewDefaultPredictor creates a predictor over the built-in pattern tables.
func NewDefaultPredictor() *Predictor {
	return NewPredictor(DefaultPatterns(), DefaultOverrides())
}

// Predict returns chapters ranked descending by trigger score. The score of a
// chapter is the summed length of its matched triggers, so longer, more
// specific triggers outweigh incidental short-substring collisions.
// Functional overrides add their priority on top of pattern scores; they are
// additive, not exclusive, so a functional word can out-rank a material word
// without silencing it. An empty result means no trigger matched.
func (p *Predictor) Predict(query string) []model.ChapterPrediction {
	query = strings.ToLower(query)
	scores := make(map[string]int)

	for _, ov := range p.overrides {
		if strings.Contains(query, strings.ToLower(ov.Trigger)) {
			scores[ov.Chapter] += ov.Priority
		}
	}

	for _, pat := range p.patterns {
		for _, trigger := range pat.Triggers {
			if strings.Contains(query, strings.ToLower(trigger)) {
				scores[pat.Chapter] += len(trigger)
			}
		}
	}

	predictions := make([]model.ChapterPrediction, 0, len(scores))
	for ch, score := range scores {
		predictions = append(predictions, model.ChapterPrediction{Chapter: ch, Score: score})
	}

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Score != predictions[j].Score {
			return predictions[i].Score > predictions[j].Score
		}
		return predictions[i].Chapter < predictions[j].Chapter
	})

	return predictions
}

// BoostFor converts a ranked prediction into a per-candidate score adjustment
// for the given code. Predicted chapters earn a boost that shrinks with rank;
// a chapter absent from a non-empty prediction is penalized. An empty
// prediction carries no signal and adjusts nothing.
func BoostFor(predictions []model.ChapterPrediction, code string) float64 {
	if len(predictions) == 0 {
		return 0
	}

	ch := model.ChapterOf(code)
	for rank, pred := range predictions {
		if pred.Chapter != ch {
			continue
		}
		switch rank {
		case 0:
			return BoostRank0
		case 1:
			return BoostRank1
		case 2:
			return BoostRank2
		default:
			return BoostOther
		}
	}

	return PenaltyAbsent
}
