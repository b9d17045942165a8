package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
)

// Create persists a new conversation session. Duplicate ids return
// common.ErrDuplicateEntry.
func (s *SQLiteStorage) Create(ctx context.Context, session *model.ConversationSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	answers, candidates, history, err := marshalSessionState(session)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions
			(id, description, domain, round, status, answers, candidates, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Description, session.Domain, session.Round, string(session.Status),
		answers, candidates, history, createdAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session %s", common.ErrDuplicateEntry, session.ID)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get loads a session by id, or common.ErrSessionNotFound.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*model.ConversationSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, domain, round, status, answers, candidates, history, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Update overwrites an existing session. Unknown ids return
// common.ErrSessionNotFound.
func (s *SQLiteStorage) Update(ctx context.Context, session *model.ConversationSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	answers, candidates, history, err := marshalSessionState(session)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET description = ?, domain = ?, round = ?, status = ?,
			answers = ?, candidates = ?, history = ?, updated_at = ?
		WHERE id = ?
	`, session.Description, session.Domain, session.Round, string(session.Status),
		answers, candidates, history, time.Now().UTC(), session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, session.ID)
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PruneSessions deletes terminal or stale sessions last touched before the
// cutoff and returns how many were removed.
func (s *SQLiteStorage) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE updated_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return result.RowsAffected()
}

func marshalSessionState(session *model.ConversationSession) (answers, candidates, history sql.NullString, err error) {
	if len(session.Answers) > 0 {
		data, marshalErr := json.Marshal(session.Answers)
		if marshalErr != nil {
			return answers, candidates, history, fmt.Errorf("failed to marshal answers: %w", marshalErr)
		}
		answers = sql.NullString{String: string(data), Valid: true}
	}
	if len(session.Candidates) > 0 {
		data, marshalErr := json.Marshal(session.Candidates)
		if marshalErr != nil {
			return answers, candidates, history, fmt.Errorf("failed to marshal candidates: %w", marshalErr)
		}
		candidates = sql.NullString{String: string(data), Valid: true}
	}
	if len(session.History) > 0 {
		data, marshalErr := json.Marshal(session.History)
		if marshalErr != nil {
			return answers, candidates, history, fmt.Errorf("failed to marshal history: %w", marshalErr)
		}
		history = sql.NullString{String: string(data), Valid: true}
	}
	return answers, candidates, history, nil
}

func scanSession(row scanner) (*model.ConversationSession, error) {
	var session model.ConversationSession
	var status string
	var answers, candidates, history sql.NullString

	if err := row.Scan(
		&session.ID,
		&session.Description,
		&session.Domain,
		&session.Round,
		&status,
		&answers,
		&candidates,
		&history,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	session.Status = model.SessionStatus(status)

	session.Answers = make(map[string]string)
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &session.Answers); err != nil {
			return nil, fmt.Errorf("session %s: answers: %w", session.ID, err)
		}
	}
	if candidates.Valid && candidates.String != "" {
		if err := json.Unmarshal([]byte(candidates.String), &session.Candidates); err != nil {
			return nil, fmt.Errorf("session %s: candidates: %w", session.ID, err)
		}
	}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &session.History); err != nil {
			return nil, fmt.Errorf("session %s: history: %w", session.ID, err)
		}
	}

	return &session, nil
}

// isUniqueViolation reports whether an error is a SQLite unique constraint
// failure without depending on driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
