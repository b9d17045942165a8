package chapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harborline/hscode/internal/model"
)

// patternsFile is the on-disk YAML shape for chapter configuration.
type patternsFile struct {
	Patterns  []model.ChapterPattern     `yaml:"patterns"`
	Overrides []model.FunctionalOverride `yaml:"overrides"`
}

// LoadPatternsFile reads chapter patterns and functional overrides from a
// YAML file.
func LoadPatternsFile(path string) ([]model.ChapterPattern, []model.FunctionalOverride, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read chapter patterns: %w", err)
	}

	var file patternsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse chapter patterns: %w", err)
	}

	for _, pat := range file.Patterns {
		if len(pat.Chapter) != model.LevelChapter {
			return nil, nil, fmt.Errorf("chapter pattern %q: chapter must be two digits", pat.Chapter)
		}
	}
	for _, ov := range file.Overrides {
		if ov.Priority <= 0 {
			return nil, nil, fmt.Errorf("override %q: priority must be positive", ov.Trigger)
		}
	}

	return file.Patterns, file.Overrides, nil
}
