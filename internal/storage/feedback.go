package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harborline/hscode/internal/model"
)

// SaveFeedback appends one feedback record. Records are append-only; the id
// assigned by the database is written back into the record.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback
			(classification_id, description, suggested_code, confidence, rating, corrected_code, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ClassificationID, record.Description, record.SuggestedCode,
		record.Confidence, record.Rating, nullable(record.CorrectedCode), record.Note, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read feedback id: %w", err)
	}
	record.ID = id
	record.CreatedAt = createdAt
	return nil
}

// GetFeedbackStats aggregates all feedback records: overall mean rating,
// correction rate, and per-chapter breakdowns ordered by chapter ascending.
func (s *SQLiteStorage) GetFeedbackStats(ctx context.Context) (*model.FeedbackStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT suggested_code, rating, COALESCE(corrected_code, '')
		FROM feedback
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type chapterAgg struct {
		records     int
		ratingSum   int
		corrections int
	}

	stats := &model.FeedbackStats{}
	byChapter := make(map[string]*chapterAgg)
	ratingSum := 0
	corrections := 0

	for rows.Next() {
		var suggested, corrected string
		var rating int
		if scanErr := rows.Scan(&suggested, &rating, &corrected); scanErr != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", scanErr)
		}

		record := model.FeedbackRecord{SuggestedCode: suggested, CorrectedCode: corrected, Rating: rating}
		stats.Records++
		ratingSum += rating

		chapter := model.ChapterOf(suggested)
		agg := byChapter[chapter]
		if agg == nil {
			agg = &chapterAgg{}
			byChapter[chapter] = agg
		}
		agg.records++
		agg.ratingSum += rating
		if record.Corrected() {
			corrections++
			agg.corrections++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	if stats.Records > 0 {
		stats.MeanRating = float64(ratingSum) / float64(stats.Records)
		stats.CorrectionRate = float64(corrections) / float64(stats.Records)
	}

	for chapter, agg := range byChapter {
		stats.ByChapter = append(stats.ByChapter, model.ChapterStats{
			Chapter:        chapter,
			Records:        agg.records,
			MeanRating:     float64(agg.ratingSum) / float64(agg.records),
			CorrectionRate: float64(agg.corrections) / float64(agg.records),
		})
	}
	sort.Slice(stats.ByChapter, func(i, j int) bool {
		return stats.ByChapter[i].Chapter < stats.ByChapter[j].Chapter
	})

	return stats, nil
}

// ClearFeedback removes all feedback records. Intended for tests and
// operator resets, not the request path.
func (s *SQLiteStorage) ClearFeedback(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feedback`); err != nil {
		return fmt.Errorf("failed to clear feedback: %w", err)
	}
	return nil
}
