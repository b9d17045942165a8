package model

import "fmt"

// QuestionOption is one bounded choice of a clarifying question.
type QuestionOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// OtherOptionValue is the reserved option value for the free-text escape that
// every clarifying question must offer.
const OtherOptionValue = "other"

// Question is a single-choice clarifying question within a decision tree.
type Question struct {
	ID      string           `yaml:"id"`
	Prompt  string           `yaml:"prompt"`
	Options []QuestionOption `yaml:"options"`
}

// Validate ensures the question is answerable.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question ID is required")
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %s: prompt is required", q.ID)
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("question %s: at least one option is required", q.ID)
	}
	return nil
}

// HasOption reports whether value is one of the question's bounded choices.
// The reserved "other" escape is always accepted.
func (q *Question) HasOption(value string) bool {
	if value == OtherOptionValue {
		return true
	}
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Condition is a tagged rule condition. Exactly one concrete kind implements
// it, so the evaluator can be exhaustive instead of duck-typed.
type Condition interface {
	// Matches evaluates the condition against a normalized query and the
	// answers collected so far.
	Matches(query string, answers map[string]string) bool
}

// KeywordSetMatch requires every keyword to appear as a substring of the
// query (AND semantics).
type KeywordSetMatch struct {
	Keywords []string `yaml:"keywords"`
}

// AnswerEqualityMatch requires a previously collected answer to equal a value.
type AnswerEqualityMatch struct {
	QuestionID string `yaml:"question_id"`
	Answer     string `yaml:"answer"`
}

// CompositeAnd requires all of its child conditions to match.
type CompositeAnd struct {
	All []Condition `yaml:"-"`
}

// Rule suggests codes with a fixed confidence boost when its condition fires.
// Rules are evaluated independently; all firing rules contribute, but a code
// named by several firing rules takes the maximum boost, never the sum.
type Rule struct {
	Name      string
	Condition Condition
	Codes     []string
	Boost     float64
}

// Validate ensures the rule can fire meaningfully.
func (r *Rule) Validate() error {
	if r.Condition == nil {
		return fmt.Errorf("rule %q: condition is required", r.Name)
	}
	if len(r.Codes) == 0 {
		return fmt.Errorf("rule %q: at least one suggested code is required", r.Name)
	}
	if r.Boost < 0 || r.Boost > 100 {
		return fmt.Errorf("rule %q: boost must be within [0,100], got %.1f", r.Name, r.Boost)
	}
	for _, code := range r.Codes {
		if err := ValidateCode(code); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return nil
}

// DecisionTree groups the clarifying questions and rules for one product
// domain (for example "vehicle_parts" or "textiles").
type DecisionTree struct {
	Domain    string
	Chapters  []string
	Questions []Question
	Rules     []Rule
}

// Validate ensures the tree's questions and rules are well formed.
func (t *DecisionTree) Validate() error {
	if t.Domain == "" {
		return fmt.Errorf("decision tree domain is required")
	}
	for i := range t.Questions {
		if err := t.Questions[i].Validate(); err != nil {
			return fmt.Errorf("tree %s: %w", t.Domain, err)
		}
	}
	for i := range t.Rules {
		if err := t.Rules[i].Validate(); err != nil {
			return fmt.Errorf("tree %s: %w", t.Domain, err)
		}
	}
	return nil
}

// QuestionByID returns the tree's question with the given id, or nil.
func (t *DecisionTree) QuestionByID(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}
