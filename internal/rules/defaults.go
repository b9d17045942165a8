package rules

import "github.com/harborline/hscode/internal/model"

// DefaultTrees returns the built-in decision trees. Operators can extend or
// replace them with a YAML file (see LoadTreesFile).
func DefaultTrees() []model.DecisionTree {
	return []model.DecisionTree{
		{
			Domain:   "vehicle_parts",
			Chapters: []string{"87"},
			Questions: []model.Question{
				{
					ID:     "vehicle_part_function",
					Prompt: "What is the part's function?",
					Options: []model.QuestionOption{
						{Value: "braking", Label: "Braking system"},
						{Value: "transmission", Label: "Transmission or clutch"},
						{Value: "body", Label: "Body panel or bumper"},
						{Value: "suspension", Label: "Suspension or steering"},
					},
				},
				{
					ID:     "vehicle_type",
					Prompt: "What kind of vehicle is the part for?",
					Options: []model.QuestionOption{
						{Value: "passenger", Label: "Passenger car"},
						{Value: "commercial", Label: "Truck or commercial vehicle"},
						{Value: "motorcycle", Label: "Motorcycle"},
					},
				},
			},
			Rules: []model.Rule{
				{
					Name:      "brake_pad_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"brake", "pad"}},
					Codes:     []string{"8708.30.00"},
					Boost:     85,
				},
				{
					Name:      "braking_answer",
					Condition: model.AnswerEqualityMatch{QuestionID: "vehicle_part_function", Answer: "braking"},
					Codes:     []string{"8708.30.00"},
					Boost:     70,
				},
				{
					Name:      "clutch_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"clutch"}},
					Codes:     []string{"8708.93.00"},
					Boost:     80,
				},
				{
					Name:      "bumper_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"bumper"}},
					Codes:     []string{"8708.10.00"},
					Boost:     80,
				},
				{
					Name: "commercial_brake",
					Condition: model.CompositeAnd{All: []model.Condition{
						model.KeywordSetMatch{Keywords: []string{"brake"}},
						model.AnswerEqualityMatch{QuestionID: "vehicle_type", Answer: "commercial"},
					}},
					Codes: []string{"8708.30.00"},
					Boost: 75,
				},
			},
		},
		{
			Domain:   "textiles",
			Chapters: []string{"52", "54", "61", "62"},
			Questions: []model.Question{
				{
					ID:     "textile_material",
					Prompt: "What is the primary material?",
					Options: []model.QuestionOption{
						{Value: "cotton", Label: "Cotton"},
						{Value: "synthetic", Label: "Synthetic fibres (polyester, nylon)"},
						{Value: "wool", Label: "Wool"},
					},
				},
				{
					ID:     "textile_construction",
					Prompt: "How is the fabric constructed?",
					Options: []model.QuestionOption{
						{Value: "woven", Label: "Woven"},
						{Value: "knitted", Label: "Knitted or crocheted"},
					},
				},
			},
			Rules: []model.Rule{
				{
					Name:      "cotton_answer",
					Condition: model.AnswerEqualityMatch{QuestionID: "textile_material", Answer: "cotton"},
					Codes:     []string{"5208.11.00"},
					Boost:     65,
				},
				{
					Name:      "synthetic_answer",
					Condition: model.AnswerEqualityMatch{QuestionID: "textile_material", Answer: "synthetic"},
					Codes:     []string{"5407.10.00"},
					Boost:     65,
				},
				{
					Name:      "cotton_fabric_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"cotton", "fabric"}},
					Codes:     []string{"5208.11.00"},
					Boost:     70,
				},
				{
					Name: "knitted_cotton_shirt",
					Condition: model.CompositeAnd{All: []model.Condition{
						model.KeywordSetMatch{Keywords: []string{"shirt"}},
						model.AnswerEqualityMatch{QuestionID: "textile_construction", Answer: "knitted"},
					}},
					Codes: []string{"6109.10.00"},
					Boost: 75,
				},
			},
		},
		{
			Domain:   "electronics",
			Chapters: []string{"85"},
			Questions: []model.Question{
				{
					ID:     "electronics_kind",
					Prompt: "What kind of device is it?",
					Options: []model.QuestionOption{
						{Value: "phone", Label: "Phone or communication device"},
						{Value: "audio", Label: "Audio equipment"},
						{Value: "power", Label: "Battery or power supply"},
					},
				},
			},
			Rules: []model.Rule{
				{
					Name:      "smartphone_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"smartphone"}},
					Codes:     []string{"8517.13.00"},
					Boost:     85,
				},
				{
					Name:      "headphone_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"headphone"}},
					Codes:     []string{"8518.30.00"},
					Boost:     85,
				},
				{
					Name:      "audio_answer",
					Condition: model.AnswerEqualityMatch{QuestionID: "electronics_kind", Answer: "audio"},
					Codes:     []string{"8518.30.00"},
					Boost:     65,
				},
				{
					Name:      "battery_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"battery"}},
					Codes:     []string{"8507.60.00"},
					Boost:     75,
				},
			},
		},
		{
			Domain:   "toys",
			Chapters: []string{"95"},
			Questions: []model.Question{
				{
					ID:     "toy_kind",
					Prompt: "What kind of toy or game is it?",
					Options: []model.QuestionOption{
						{Value: "doll", Label: "Doll or figure"},
						{Value: "puzzle", Label: "Puzzle"},
						{Value: "general", Label: "Other toy"},
					},
				},
			},
			Rules: []model.Rule{
				{
					Name:      "toy_keywords",
					Condition: model.KeywordSetMatch{Keywords: []string{"toy"}},
					Codes:     []string{"9503.00.00"},
					Boost:     75,
				},
				{
					Name:      "puzzle_answer",
					Condition: model.AnswerEqualityMatch{QuestionID: "toy_kind", Answer: "puzzle"},
					Codes:     []string{"9503.00.00"},
					Boost:     70,
				},
			},
		},
		{
			Domain: FallbackDomain,
			Questions: []model.Question{
				{
					ID:     "generic_material",
					Prompt: "What is the product mainly made of?",
					Options: []model.QuestionOption{
						{Value: "plastic", Label: "Plastic"},
						{Value: "metal", Label: "Metal"},
						{Value: "textile", Label: "Textile"},
						{Value: "wood", Label: "Wood"},
						{Value: "glass", Label: "Glass or ceramic"},
					},
				},
				{
					ID:     "generic_use",
					Prompt: "What is the product used for?",
					Options: []model.QuestionOption{
						{Value: "household", Label: "Household use"},
						{Value: "industrial", Label: "Industrial or machinery use"},
						{Value: "apparel", Label: "Clothing or wearing"},
						{Value: "recreation", Label: "Toys, games or sport"},
					},
				},
			},
			Rules: nil,
		},
	}
}
