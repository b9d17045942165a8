package model

import (
	"fmt"
	"sort"
)

// MatchType identifies which retrieval channel produced a candidate.
type MatchType string

// Match type constants.
const (
	MatchLexical  MatchType = "lexical"
	MatchRule     MatchType = "rule"
	MatchSemantic MatchType = "semantic"
	MatchFused    MatchType = "fused"
)

// Candidate is a scored classification suggestion for a single catalog code.
// Candidates are transient and rebuilt on every query or clarifying round.
type Candidate struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	MatchType   MatchType `json:"matchType"`
	Score       float64   `json:"score"`

	// Per-channel contributions folded into Score. Each holds the maximum
	// contribution observed from its channel, never a sum.
	SemanticScore float64 `json:"semanticScore,omitempty"`
	ChapterBoost  float64 `json:"chapterBoost,omitempty"`
	RuleBoost     float64 `json:"ruleBoost,omitempty"`
	KeywordBonus  float64 `json:"keywordBonus,omitempty"`
}

// Validate ensures the candidate has valid data.
func (c *Candidate) Validate() error {
	if err := ValidateCode(c.Code); err != nil {
		return err
	}
	if c.Score < 0 {
		return fmt.Errorf("candidate %s: score must not be negative, got %.2f", c.Code, c.Score)
	}
	return nil
}

// Level returns the hierarchy depth of the candidate's code.
func (c *Candidate) Level() int {
	return CodeLevel(c.Code)
}

// Candidates is a slice of Candidate that supports sorting and utility methods.
type Candidates []Candidate

// Len implements sort.Interface.
func (c Candidates) Len() int {
	return len(c)
}

// Less implements sort.Interface. Higher scores come first; equal scores
// prefer the more specific (longer) code, then code ascending for stability.
func (c Candidates) Less(i, j int) bool {
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}
	if c[i].Level() != c[j].Level() {
		return c[i].Level() > c[j].Level()
	}
	return c[i].Code < c[j].Code
}

// Swap implements sort.Interface.
func (c Candidates) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

// Sort sorts the candidates by score in descending order.
func (c Candidates) Sort() {
	sort.Sort(c)
}

// Top returns the highest-scoring candidate, or nil if empty.
func (c Candidates) Top() *Candidate {
	if len(c) == 0 {
		return nil
	}
	c.Sort()
	return &c[0]
}

// TopN returns the N highest-scoring candidates.
func (c Candidates) TopN(n int) Candidates {
	if n <= 0 {
		return Candidates{}
	}

	c.Sort()

	if n > len(c) {
		n = len(c)
	}

	result := make(Candidates, n)
	copy(result, c[:n])
	return result
}

// Margin returns the score separation between the top two candidates. A
// single-candidate list has an unbounded margin and returns the top score.
func (c Candidates) Margin() float64 {
	c.Sort()
	switch len(c) {
	case 0:
		return 0
	case 1:
		return c[0].Score
	default:
		return c[0].Score - c[1].Score
	}
}

// Validate ensures all candidates are valid and that no code appears twice.
func (c Candidates) Validate() error {
	seen := make(map[string]bool)

	for i := range c {
		if err := c[i].Validate(); err != nil {
			return fmt.Errorf("invalid candidate at index %d: %w", i, err)
		}
		if seen[c[i].Code] {
			return fmt.Errorf("duplicate code %q in candidates", c[i].Code)
		}
		seen[c[i].Code] = true
	}

	return nil
}
