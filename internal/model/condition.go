package model

import "strings"

// Matches reports whether every keyword appears as a substring of the query.
func (m KeywordSetMatch) Matches(query string, _ map[string]string) bool {
	if len(m.Keywords) == 0 {
		return false
	}
	for _, kw := range m.Keywords {
		if !strings.Contains(query, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// Matches reports whether the collected answer for the question equals the
// expected value.
func (m AnswerEqualityMatch) Matches(_ string, answers map[string]string) bool {
	got, ok := answers[m.QuestionID]
	return ok && got == m.Answer
}

// Matches reports whether all child conditions match.
func (m CompositeAnd) Matches(query string, answers map[string]string) bool {
	if len(m.All) == 0 {
		return false
	}
	for _, cond := range m.All {
		if !cond.Matches(query, answers) {
			return false
		}
	}
	return true
}
