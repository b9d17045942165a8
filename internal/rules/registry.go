package rules

import (
	"sort"

	"github.com/harborline/hscode/internal/model"
)

// Registry maps predicted chapters to the decision tree that covers them.
// When no domain-specific tree exists for a chapter, ForChapter falls back to
// a generic tree so the orchestrator always has questions to draw from.
type Registry struct {
	byDomain  map[string]*model.DecisionTree
	byChapter map[string]*model.DecisionTree
	fallback  *model.DecisionTree
}

// NewRegistry builds a registry from the given trees. The tree whose domain
// is "general" (if present) becomes the fallback.
func NewRegistry(trees []model.DecisionTree) *Registry {
	r := &Registry{
		byDomain:  make(map[string]*model.DecisionTree),
		byChapter: make(map[string]*model.DecisionTree),
	}

	for i := range trees {
		tree := &trees[i]
		r.byDomain[tree.Domain] = tree
		for _, ch := range tree.Chapters {
			r.byChapter[ch] = tree
		}
		if tree.Domain == FallbackDomain {
			r.fallback = tree
		}
	}

	return r
}

// FallbackDomain names the tree used when no chapter-specific tree exists.
const FallbackDomain = "general"

// ForDomain returns the tree registered for a domain name, or the fallback.
func (r *Registry) ForDomain(domain string) *model.DecisionTree {
	if tree, ok := r.byDomain[domain]; ok {
		return tree
	}
	return r.fallback
}

// ForChapter returns the tree covering a two-digit chapter, or the fallback.
func (r *Registry) ForChapter(chapter string) *model.DecisionTree {
	if tree, ok := r.byChapter[chapter]; ok {
		return tree
	}
	return r.fallback
}

// Domains returns the registered domain names in stable order.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.byDomain))
	for d := range r.byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
