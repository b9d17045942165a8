package engine

import (
	"fmt"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/rules"
)

// openClarifyingRound selects the next unasked question for the session and
// transitions it to clarifying. It fails when every available question has
// already been asked, in which case the caller forces completion instead.
func (e *Engine) openClarifyingRound(session *model.ConversationSession) (*Response, error) {
	question := e.nextQuestion(session)
	if question == nil {
		return nil, fmt.Errorf("%w: no clarifying questions left", common.ErrClassificationFailed)
	}

	session.Status = model.StatusClarifying
	session.History = append(session.History, model.AskedQuestion{
		Round:      session.Round + 1,
		QuestionID: question.ID,
		Prompt:     question.Prompt,
	})

	e.logger.Debug("clarifying question selected",
		"session_id", session.ID,
		"question_id", question.ID,
		"round", session.Round+1)

	return &Response{
		Type:           ResponseQuestions,
		ConversationID: session.ID,
		Round:          session.Round + 1,
		Questions:      []QuestionPrompt{promptFor(question)},
	}, nil
}

// nextQuestion picks the differentiating question for the current candidates:
// domain-tree questions first, then the generic fallback questions. Questions
// already asked or answered are skipped.
func (e *Engine) nextQuestion(session *model.ConversationSession) *model.Question {
	asked := make(map[string]bool, len(session.History))
	for _, h := range session.History {
		asked[h.QuestionID] = true
	}

	if tree := e.registry.ForDomain(session.Domain); tree != nil {
		if q := firstUnasked(tree, asked, session.Answers); q != nil {
			return q
		}
	}

	if session.Domain != rules.FallbackDomain {
		if tree := e.registry.ForDomain(rules.FallbackDomain); tree != nil {
			if q := firstUnasked(tree, asked, session.Answers); q != nil {
				return q
			}
		}
	}

	return nil
}

func firstUnasked(tree *model.DecisionTree, asked map[string]bool, answers map[string]string) *model.Question {
	for i := range tree.Questions {
		q := &tree.Questions[i]
		if asked[q.ID] {
			continue
		}
		if _, answered := answers[q.ID]; answered {
			continue
		}
		return q
	}
	return nil
}

// promptFor renders a question for the caller, appending the free-text
// escape every question must offer.
func promptFor(q *model.Question) QuestionPrompt {
	options := make([]model.QuestionOption, 0, len(q.Options)+1)
	options = append(options, q.Options...)
	options = append(options, model.QuestionOption{
		Value: model.OtherOptionValue,
		Label: "Other (describe in your own words)",
	})

	return QuestionPrompt{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: options,
	}
}
