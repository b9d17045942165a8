package model

import (
	"fmt"
	"time"
)

// FeedbackRecord is one append-only record of a classification outcome and
// the user's judgement of it. Records are never mutated after creation.
type FeedbackRecord struct {
	ID               int64
	ClassificationID string
	Description      string
	SuggestedCode    string
	Confidence       float64
	Rating           int
	CorrectedCode    string
	Note             string
	CreatedAt        time.Time
}

// Validate ensures the record can be persisted.
func (r *FeedbackRecord) Validate() error {
	if r.ClassificationID == "" {
		return fmt.Errorf("classification ID is required")
	}
	if err := ValidateCode(r.SuggestedCode); err != nil {
		return fmt.Errorf("suggested code: %w", err)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be within [1,5], got %d", r.Rating)
	}
	if r.CorrectedCode != "" {
		if err := ValidateCode(r.CorrectedCode); err != nil {
			return fmt.Errorf("corrected code: %w", err)
		}
	}
	return nil
}

// Corrected reports whether the user supplied a code that differs from the
// suggestion.
func (r *FeedbackRecord) Corrected() bool {
	return r.CorrectedCode != "" && NormalizeCode(r.CorrectedCode) != NormalizeCode(r.SuggestedCode)
}

// ChapterStats aggregates feedback for a single chapter.
type ChapterStats struct {
	Chapter        string  `json:"chapter"`
	Records        int     `json:"records"`
	MeanRating     float64 `json:"meanRating"`
	CorrectionRate float64 `json:"correctionRate"`
}

// FeedbackStats is the aggregate view over all feedback records.
type FeedbackStats struct {
	Records        int            `json:"records"`
	MeanRating     float64        `json:"meanRating"`
	CorrectionRate float64        `json:"correctionRate"`
	ByChapter      []ChapterStats `json:"byChapter,omitempty"`
}
