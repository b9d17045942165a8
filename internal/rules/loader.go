package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harborline/hscode/internal/model"
)

// yamlCondition is the on-disk shape of a rule condition. Exactly one of the
// fields should be set; setting several folds them into a CompositeAnd.
type yamlCondition struct {
	Keywords []string            `yaml:"keywords,omitempty"`
	Answer   *yamlAnswerEquality `yaml:"answer,omitempty"`
	All      []yamlCondition     `yaml:"all,omitempty"`
}

type yamlAnswerEquality struct {
	QuestionID string `yaml:"question_id"`
	Answer     string `yaml:"answer"`
}

type yamlRule struct {
	Name  string        `yaml:"name"`
	When  yamlCondition `yaml:"when"`
	Codes []string      `yaml:"codes"`
	Boost float64       `yaml:"boost"`
}

type yamlTree struct {
	Domain    string           `yaml:"domain"`
	Chapters  []string         `yaml:"chapters"`
	Questions []model.Question `yaml:"questions"`
	Rules     []yamlRule       `yaml:"rules"`
}

type treesFile struct {
	Trees []yamlTree `yaml:"trees"`
}

// LoadTreesFile reads decision trees from a YAML file.
func LoadTreesFile(path string) ([]model.DecisionTree, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read decision trees: %w", err)
	}
	return parseTrees(data)
}

func parseTrees(data []byte) ([]model.DecisionTree, error) {
	var file treesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse decision trees: %w", err)
	}

	trees := make([]model.DecisionTree, 0, len(file.Trees))
	for _, yt := range file.Trees {
		tree := model.DecisionTree{
			Domain:    yt.Domain,
			Chapters:  yt.Chapters,
			Questions: yt.Questions,
		}

		for _, yr := range yt.Rules {
			cond, err := buildCondition(yr.When)
			if err != nil {
				return nil, fmt.Errorf("tree %s, rule %q: %w", yt.Domain, yr.Name, err)
			}
			tree.Rules = append(tree.Rules, model.Rule{
				Name:      yr.Name,
				Condition: cond,
				Codes:     yr.Codes,
				Boost:     yr.Boost,
			})
		}

		if err := tree.Validate(); err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	return trees, nil
}

// buildCondition converts the loose YAML shape into a tagged condition value.
func buildCondition(yc yamlCondition) (model.Condition, error) {
	var parts []model.Condition

	if len(yc.Keywords) > 0 {
		parts = append(parts, model.KeywordSetMatch{Keywords: yc.Keywords})
	}
	if yc.Answer != nil {
		if yc.Answer.QuestionID == "" {
			return nil, fmt.Errorf("answer condition requires question_id")
		}
		parts = append(parts, model.AnswerEqualityMatch{
			QuestionID: yc.Answer.QuestionID,
			Answer:     yc.Answer.Answer,
		})
	}
	for _, child := range yc.All {
		cond, err := buildCondition(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cond)
	}

	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("condition is empty")
	case 1:
		return parts[0], nil
	default:
		return model.CompositeAnd{All: parts}, nil
	}
}
