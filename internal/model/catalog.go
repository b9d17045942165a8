// Package model defines the core data structures for the hscode application.
package model

import (
	"fmt"
	"strings"
)

// Code levels expressed as digit counts. The digit length of a code implies
// its depth in the tariff hierarchy.
const (
	LevelChapter     = 2
	LevelHeading     = 4
	LevelSubheading  = 6
	LevelTariffItem  = 8
	LevelStatistical = 10
)

// Well-known metadata keys for CatalogEntry.Metadata.
const (
	MetaUnitOfMeasure = "unit_of_measure"
	MetaDutyRate      = "duty_rate"
	MetaTradeRemark   = "trade_remark"
)

// CatalogEntry is a single node of the commodity-code catalog. Entries are
// immutable at query time; the catalog store owns them.
type CatalogEntry struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords,omitempty"`
	Examples    []string          `json:"examples,omitempty"`
	Synonyms    []string          `json:"synonyms,omitempty"`
	Embedding   []float32         `json:"embedding,omitempty"`
	ParentCode  string            `json:"parentCode,omitempty"`
	Children    []string          `json:"children,omitempty"`
	Descendants []string          `json:"descendants,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate ensures the entry carries a well-formed code and description.
func (e *CatalogEntry) Validate() error {
	if err := ValidateCode(e.Code); err != nil {
		return err
	}
	if e.Description == "" {
		return fmt.Errorf("catalog entry %s: description is required", e.Code)
	}
	if e.ParentCode != "" {
		if err := ValidateCode(e.ParentCode); err != nil {
			return fmt.Errorf("catalog entry %s: parent: %w", e.Code, err)
		}
	}
	return nil
}

// Chapter returns the two-digit chapter prefix of the entry's code.
func (e *CatalogEntry) Chapter() string {
	return ChapterOf(e.Code)
}

// Level returns the hierarchy depth implied by the code's digit count.
func (e *CatalogEntry) Level() int {
	return CodeLevel(e.Code)
}

// NormalizeCode strips the dot separators from a catalog code, leaving only
// the hierarchical digits.
func NormalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), ".", "")
}

// CodeLevel returns the digit count of a code (2, 4, 6, 8 or 10), which
// encodes its depth in the hierarchy. Malformed codes return 0.
func CodeLevel(code string) int {
	digits := NormalizeCode(code)
	switch len(digits) {
	case LevelChapter, LevelHeading, LevelSubheading, LevelTariffItem, LevelStatistical:
		return len(digits)
	default:
		return 0
	}
}

// ChapterOf returns the two-digit chapter prefix of a code, or "" for
// malformed codes.
func ChapterOf(code string) string {
	digits := NormalizeCode(code)
	if len(digits) < LevelChapter {
		return ""
	}
	return digits[:LevelChapter]
}

// ParentOf returns the code one level up the hierarchy, or "" when the code
// is already a chapter (or malformed). The returned code is undotted.
func ParentOf(code string) string {
	digits := NormalizeCode(code)
	switch len(digits) {
	case LevelStatistical:
		return digits[:LevelTariffItem]
	case LevelTariffItem:
		return digits[:LevelSubheading]
	case LevelSubheading:
		return digits[:LevelHeading]
	case LevelHeading:
		return digits[:LevelChapter]
	default:
		return ""
	}
}

// IsWithinSubtree reports whether candidate sits at or below ancestor in the
// code hierarchy.
func IsWithinSubtree(candidate, ancestor string) bool {
	c := NormalizeCode(candidate)
	a := NormalizeCode(ancestor)
	if a == "" || c == "" {
		return false
	}
	return strings.HasPrefix(c, a)
}

// ValidateCode checks that a code consists of dot-delimited digits with a
// recognized total digit count.
func ValidateCode(code string) error {
	digits := NormalizeCode(code)
	if digits == "" {
		return fmt.Errorf("code is required")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("code %q contains non-digit characters", code)
		}
	}
	if CodeLevel(code) == 0 {
		return fmt.Errorf("code %q has invalid length %d", code, len(digits))
	}
	return nil
}
