package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/service"
)

// MemorySessionStore implements service.SessionStore using in-memory storage.
// Suitable for single-instance deployments; swap in the SQLite store from
// internal/storage when sessions must survive restarts.
type MemorySessionStore struct {
	sessions        map[string]*model.ConversationSession
	stopCh          chan struct{}
	stopOnce        sync.Once
	cleanupInterval time.Duration
	maxAge          time.Duration
	mu              sync.RWMutex
}

var _ service.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a new in-memory session store with a
// background cleanup loop for abandoned and stale sessions.
func NewMemorySessionStore() *MemorySessionStore {
	store := &MemorySessionStore{
		sessions:        make(map[string]*model.ConversationSession),
		cleanupInterval: 10 * time.Minute,
		maxAge:          24 * time.Hour,
		stopCh:          make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

// Create stores a new conversation session.
func (s *MemorySessionStore) Create(_ context.Context, session *model.ConversationSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session %s", common.ErrDuplicateEntry, session.ID)
	}

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get retrieves a conversation session by id.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*model.ConversationSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty session id", common.ErrSessionNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}

	return session.Clone(), nil
}

// Update replaces the stored state of an existing session.
func (s *MemorySessionStore) Update(_ context.Context, session *model.ConversationSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, session.ID)
	}

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error; the
// session's resources are already released.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Close stops the cleanup loop.
func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *MemorySessionStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeStale()
		}
	}
}

func (s *MemorySessionStore) removeStale() {
	cutoff := time.Now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
