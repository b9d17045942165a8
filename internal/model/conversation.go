package model

import (
	"fmt"
	"time"
)

// SessionStatus tracks where a conversation sits in the disambiguation
// state machine.
type SessionStatus string

// Session status constants.
const (
	StatusCollecting SessionStatus = "collecting"
	StatusClarifying SessionStatus = "clarifying"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// AskedQuestion records one question emitted during a clarifying round,
// together with the answer that eventually arrived.
type AskedQuestion struct {
	Round      int
	QuestionID string
	Prompt     string
	Answer     string
}

// ConversationSession is the resumable server-side state of one
// classification conversation. It is owned exclusively by the orchestrator
// and must never be mutated concurrently for the same id.
type ConversationSession struct {
	ID          string
	Description string
	Domain      string
	Round       int
	Status      SessionStatus
	Answers     map[string]string
	Candidates  Candidates
	History     []AskedQuestion
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate ensures the session has usable identity and state.
func (s *ConversationSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if s.Description == "" {
		return fmt.Errorf("session %s: description is required", s.ID)
	}
	switch s.Status {
	case StatusCollecting, StatusClarifying, StatusCompleted, StatusAbandoned:
	default:
		return fmt.Errorf("session %s: unknown status %q", s.ID, s.Status)
	}
	if s.Round < 0 {
		return fmt.Errorf("session %s: round must not be negative", s.ID)
	}
	return nil
}

// Terminal reports whether the session has reached a final state.
func (s *ConversationSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}

// Clone returns a deep copy so callers can hand sessions across goroutines
// without sharing mutable state.
func (s *ConversationSession) Clone() *ConversationSession {
	dup := *s
	dup.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		dup.Answers[k] = v
	}
	dup.Candidates = make(Candidates, len(s.Candidates))
	copy(dup.Candidates, s.Candidates)
	dup.History = make([]AskedQuestion, len(s.History))
	copy(dup.History, s.History)
	return &dup
}
