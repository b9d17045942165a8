// Package engine implements the disambiguation orchestrator: the bounded
// conversation state machine that turns a ranked candidate list into either a
// final classification or a round of clarifying questions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/ranker"
	"github.com/harborline/hscode/internal/rules"
	"github.com/harborline/hscode/internal/service"
)

// Config holds the orchestrator's thresholds.
type Config struct {
	HighConfidence   float64
	MinMargin        float64
	MaxRounds        int
	CappedConfidence float64
	MinDescription   int
	MaxDescription   int
	Alternatives     int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighConfidence:   75,
		MinMargin:        12,
		MaxRounds:        3,
		CappedConfidence: 60,
		MinDescription:   3,
		MaxDescription:   500,
		Alternatives:     5,
	}
}

// Engine drives classification conversations. All session mutation funnels
// through per-id locks so concurrent skip/answer requests for the same
// conversation serialize instead of racing.
type Engine struct {
	ranker   *ranker.Ranker
	registry *rules.Registry
	sessions service.SessionStore
	model    service.ModelClient
	logger   *slog.Logger
	config   Config
	locks    sync.Map // session id -> *sync.Mutex
}

// New creates an orchestrator with default configuration.
func New(r *ranker.Ranker, registry *rules.Registry, sessions service.SessionStore, modelClient service.ModelClient, logger *slog.Logger) *Engine {
	return NewWithConfig(r, registry, sessions, modelClient, logger, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom thresholds.
func NewWithConfig(r *ranker.Ranker, registry *rules.Registry, sessions service.SessionStore, modelClient service.ModelClient, logger *slog.Logger, config Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ranker:   r,
		registry: registry,
		sessions: sessions,
		model:    modelClient,
		logger:   logger,
		config:   config,
	}
}

// ResponseType distinguishes the two shapes a classification response takes.
type ResponseType string

// Response type constants.
const (
	ResponseQuestions ResponseType = "questions"
	ResponseResult    ResponseType = "result"
)

// QuestionPrompt is one clarifying question as presented to the caller,
// always carrying the free-text "other" escape as its last option.
type QuestionPrompt struct {
	ID      string                 `json:"id"`
	Prompt  string                 `json:"prompt"`
	Options []model.QuestionOption `json:"options"`
}

// Result is a final classification.
type Result struct {
	Code         string           `json:"code"`
	Description  string           `json:"description"`
	Confidence   float64          `json:"confidence"`
	Reasoning    string           `json:"reasoning"`
	Alternatives model.Candidates `json:"alternatives"`
}

// Response is the orchestrator's answer to any conversation operation.
type Response struct {
	Type           ResponseType     `json:"type"`
	ConversationID string           `json:"conversationId"`
	Round          int              `json:"round"`
	Questions      []QuestionPrompt `json:"questions,omitempty"`
	Result         *Result          `json:"result,omitempty"`
}

// Classify starts a conversation for a product description. It either
// completes immediately when the top candidate is separable with enough
// confidence, or opens a clarifying round.
func (e *Engine) Classify(ctx context.Context, description string) (*Response, error) {
	if err := e.validateDescription(description); err != nil {
		return nil, err
	}

	rankResult, err := e.ranker.Rank(ctx, description, nil)
	if err != nil {
		return nil, err
	}

	session := &model.ConversationSession{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(description),
		Status:      model.StatusCollecting,
		Answers:     make(map[string]string),
		Candidates:  rankResult.Candidates,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	session.Domain = e.domainFor(rankResult.Predictions)

	if e.separable(rankResult.Candidates) {
		resp, resolveErr := e.complete(ctx, session, false)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if err := e.sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to persist session: %w", err)
		}
		return resp, nil
	}

	resp, err := e.openClarifyingRound(session)
	if err != nil {
		// No questions left to ask; fall back to the best candidate.
		resp, err = e.complete(ctx, session, true)
		if err != nil {
			return nil, err
		}
	}

	if err := e.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return resp, nil
}

// SubmitAnswers applies clarifying answers to a session, re-ranks, and either
// completes or asks the next question. Answers are validated before any
// session mutation; an unknown question id rejects the whole submission.
func (e *Engine) SubmitAnswers(ctx context.Context, sessionID string, answers map[string]string) (*Response, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionTerminated, sessionID)
	}

	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no answers submitted", common.ErrInvalidAnswer)
	}

	// Validate everything before touching the session: a bad answer must not
	// partially apply.
	asked := make(map[string]bool, len(session.History))
	for _, h := range session.History {
		asked[h.QuestionID] = true
	}
	for id, value := range answers {
		if !asked[id] {
			return nil, fmt.Errorf("%w: unknown question id %q", common.ErrInvalidAnswer, id)
		}
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%w: empty answer for question %q", common.ErrInvalidAnswer, id)
		}
	}

	for id, value := range answers {
		session.Answers[id] = strings.TrimSpace(value)
		for i := range session.History {
			if session.History[i].QuestionID == id && session.History[i].Answer == "" {
				session.History[i].Answer = session.Answers[id]
			}
		}
	}
	session.Round++

	rankResult, err := e.ranker.Rank(ctx, e.augmentedQuery(session), session.Answers)
	if err != nil && !errors.Is(err, common.ErrNoMatch) {
		return nil, err
	}
	if rankResult != nil {
		e.checkNarrowing(session, rankResult.Candidates)
		session.Candidates = rankResult.Candidates
	}

	var resp *Response
	switch {
	case e.separable(session.Candidates):
		resp, err = e.complete(ctx, session, false)
	case session.Round >= e.config.MaxRounds:
		resp, err = e.complete(ctx, session, true)
	default:
		resp, err = e.openClarifyingRound(session)
		if err != nil {
			resp, err = e.complete(ctx, session, true)
		}
	}
	if err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := e.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return resp, nil
}

// Skip forces completion with the current best candidate regardless of
// confidence.
func (e *Engine) Skip(ctx context.Context, sessionID string) (*Response, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionTerminated, sessionID)
	}

	resp, err := e.complete(ctx, session, true)
	if err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := e.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return resp, nil
}

// Abandon terminates a conversation without a result and releases its state.
func (e *Engine) Abandon(ctx context.Context, sessionID string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = model.StatusAbandoned
	session.UpdatedAt = time.Now().UTC()
	if err := e.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return e.sessions.Delete(ctx, sessionID)
}

// Session returns a copy of the conversation state for inspection.
func (e *Engine) Session(ctx context.Context, sessionID string) (*model.ConversationSession, error) {
	return e.sessions.Get(ctx, sessionID)
}

// separable reports whether the top candidate clears the confidence threshold
// with enough margin over the runner-up.
func (e *Engine) separable(candidates model.Candidates) bool {
	top := candidates.Top()
	if top == nil {
		return false
	}
	return top.Score >= e.config.HighConfidence && candidates.Margin() >= e.config.MinMargin
}

// complete transitions the session to completed and builds the result.
// Forced completions (round limit, skip, no questions left) report a capped
// confidence to signal reduced certainty.
func (e *Engine) complete(ctx context.Context, session *model.ConversationSession, forced bool) (*Response, error) {
	top := session.Candidates.Top()
	if top == nil {
		return nil, common.ErrNoMatch
	}

	confidence := top.Score
	if confidence > 100 {
		confidence = 100
	}
	if forced && confidence > e.config.CappedConfidence {
		confidence = e.config.CappedConfidence
	}

	session.Status = model.StatusCompleted
	session.UpdatedAt = time.Now().UTC()

	alternatives := session.Candidates.TopN(e.config.Alternatives + 1)
	if len(alternatives) > 0 {
		alternatives = alternatives[1:]
	}

	result := &Result{
		Code:         top.Code,
		Description:  top.Description,
		Confidence:   confidence,
		Reasoning:    e.reasoning(ctx, session, top),
		Alternatives: alternatives,
	}

	e.logger.Info("classification completed",
		"session_id", session.ID,
		"code", top.Code,
		"confidence", confidence,
		"rounds", session.Round,
		"forced", forced)

	return &Response{
		Type:           ResponseResult,
		ConversationID: session.ID,
		Round:          session.Round,
		Result:         result,
	}, nil
}

// reasoning asks the model for a short narrative and falls back to a
// deterministic summary when the model declines or fails.
func (e *Engine) reasoning(ctx context.Context, session *model.ConversationSession, top *model.Candidate) string {
	if e.model != nil {
		explanation, err := e.model.Reason(ctx, service.ReasonRequest{
			Description: session.Description,
			Candidates:  session.Candidates,
			Answers:     session.Answers,
		})
		if err != nil {
			e.logger.Debug("reasoning generation failed", "session_id", session.ID, "error", err)
		} else if explanation != "" {
			return explanation
		}
	}

	var parts []string
	if top.RuleBoost > 0 {
		parts = append(parts, "matched a domain classification rule")
	}
	if top.ChapterBoost > 0 {
		parts = append(parts, fmt.Sprintf("chapter %s was predicted from the description", model.ChapterOf(top.Code)))
	}
	if top.SemanticScore > 0 {
		parts = append(parts, "the description is semantically close to the code text")
	}
	if len(parts) == 0 {
		parts = append(parts, "best available lexical match")
	}
	return fmt.Sprintf("Suggested %s because %s.", top.Code, strings.Join(parts, "; "))
}

// augmentedQuery folds collected answer text into the original description so
// free-text escapes and option values feed the lexical channels.
func (e *Engine) augmentedQuery(session *model.ConversationSession) string {
	parts := []string{session.Description}
	for _, h := range session.History {
		if h.Answer != "" && h.Answer != model.OtherOptionValue {
			parts = append(parts, h.Answer)
		}
	}
	return strings.Join(parts, " ")
}

// domainFor resolves the decision-tree domain from the predicted top chapter.
func (e *Engine) domainFor(predictions []model.ChapterPrediction) string {
	if len(predictions) == 0 {
		return rules.FallbackDomain
	}
	tree := e.registry.ForChapter(predictions[0].Chapter)
	if tree == nil {
		return rules.FallbackDomain
	}
	return tree.Domain
}

// checkNarrowing logs when a clarifying answer moved the ranking outside
// every previous candidate's subtree, which usually means the answer
// contradicted the description rather than narrowing it.
func (e *Engine) checkNarrowing(session *model.ConversationSession, next model.Candidates) {
	top := next.Top()
	if top == nil || len(session.Candidates) == 0 {
		return
	}
	for _, prev := range session.Candidates {
		if model.IsWithinSubtree(top.Code, model.ChapterOf(prev.Code)) {
			return
		}
	}
	e.logger.Warn("answer moved ranking outside all prior candidate subtrees",
		"session_id", session.ID,
		"new_top", top.Code)
}

// validateDescription applies the request-level length bounds before any
// retrieval work happens.
func (e *Engine) validateDescription(description string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(description))
	if length < e.config.MinDescription {
		return common.NewUserError(
			fmt.Sprintf("description must be at least %d characters; describe the product, its material and its use", e.config.MinDescription),
			common.ErrValidation,
		)
	}
	if length > e.config.MaxDescription {
		return common.NewUserError(
			fmt.Sprintf("description must be at most %d characters", e.config.MaxDescription),
			common.ErrValidation,
		)
	}
	return nil
}

// lockSession serializes access per conversation id.
func (e *Engine) lockSession(sessionID string) func() {
	muAny, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
