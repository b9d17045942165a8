// Package rules implements the decision-tree rule engine: per-domain
// keyword/answer rules that suggest codes with fixed confidence boosts.
package rules

import (
	"strings"

	"github.com/harborline/hscode/internal/model"
)

// Match is one rule-suggested code with its confidence boost.
type Match struct {
	Code  string
	Boost float64
	Rules []string
}

// Engine evaluates the rules of a single decision tree.
type Engine struct {
	tree *model.DecisionTree
}

// NewEngine creates a rule engine over one decision tree.
func NewEngine(tree *model.DecisionTree) *Engine {
	return &Engine{tree: tree}
}

// Tree returns the engine's decision tree.
func (e *Engine) Tree() *model.DecisionTree {
	return e.tree
}

// Evaluate runs every rule independently against the query and the answers
// collected so far. All firing rules contribute, but when several firing
// rules suggest the same code the code takes the maximum boost across them.
// Boosts sit on a bounded 0-100 confidence scale, so summing them would
// manufacture certainty no single rule expressed.
func (e *Engine) Evaluate(query string, answers map[string]string) []Match {
	if e.tree == nil {
		return nil
	}

	query = strings.ToLower(query)

	byCode := make(map[string]*Match)
	var order []string

	for i := range e.tree.Rules {
		rule := &e.tree.Rules[i]
		if !rule.Condition.Matches(query, answers) {
			continue
		}

		for _, code := range rule.Codes {
			m, ok := byCode[code]
			if !ok {
				byCode[code] = &Match{Code: code, Boost: rule.Boost, Rules: []string{rule.Name}}
				order = append(order, code)
				continue
			}
			m.Rules = append(m.Rules, rule.Name)
			if rule.Boost > m.Boost {
				m.Boost = rule.Boost
			}
		}
	}

	matches := make([]Match, 0, len(order))
	for _, code := range order {
		matches = append(matches, *byCode[code])
	}
	return matches
}
