// Package storage provides the SQLite persistence layer for the hscode
// application: the read-mostly commodity-code catalog, conversation sessions,
// and the append-only feedback log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harborline/hscode/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidEntry   = errors.New("invalid catalog entry")
	ErrInvalidSession = errors.New("invalid session")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntries validates a slice of catalog entries before import.
func validateEntries(entries []model.CatalogEntry) error {
	if entries == nil {
		return fmt.Errorf("%w: entries", ErrNilParameter)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries", ErrEmptySlice)
	}

	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("%w: entry at index %d: %v", ErrInvalidEntry, i, err)
		}
	}
	return nil
}

// validateSession validates a conversation session before persistence.
func validateSession(session *model.ConversationSession) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}
