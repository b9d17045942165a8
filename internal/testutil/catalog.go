package testutil

import "github.com/harborline/hscode/internal/model"

// SampleCatalog returns a small cross-chapter catalog with synthetic
// embeddings. The vectors are orthogonal-ish by product family so cosine
// search behaves predictably in tests.
func SampleCatalog() []model.CatalogEntry {
	return []model.CatalogEntry{
		{
			Code:        "8708",
			Description: "Parts and accessories of motor vehicles",
			Keywords:    []string{"vehicle", "auto part"},
			Embedding:   []float32{1, 0, 0, 0},
		},
		{
			Code:        "8708.30.00",
			Description: "Brakes and servo-brakes; parts thereof",
			Keywords:    []string{"brake", "brake pad", "disc"},
			Synonyms:    []string{"braking system"},
			ParentCode:  "8708",
			Embedding:   []float32{0.95, 0.05, 0, 0},
		},
		{
			Code:        "8708.93.00",
			Description: "Clutches and parts thereof",
			Keywords:    []string{"clutch"},
			ParentCode:  "8708",
			Embedding:   []float32{0.8, 0.2, 0, 0},
		},
		{
			Code:        "5208.11.00",
			Description: "Woven fabrics of cotton, unbleached, plain weave",
			Keywords:    []string{"cotton", "fabric", "woven"},
			ParentCode:  "5208",
			Embedding:   []float32{0, 1, 0, 0},
		},
		{
			Code:        "5407.10.00",
			Description: "Woven fabrics of synthetic filament yarn",
			Keywords:    []string{"synthetic", "fabric", "polyester"},
			ParentCode:  "5407",
			Embedding:   []float32{0, 0.9, 0.1, 0},
		},
		{
			Code:        "8517.13.00",
			Description: "Smartphones",
			Keywords:    []string{"smartphone", "phone", "mobile"},
			Embedding:   []float32{0, 0, 1, 0},
		},
		{
			Code:        "9503.00.00",
			Description: "Toys; scale models and puzzles",
			Keywords:    []string{"toy", "puzzle", "model"},
			Embedding:   []float32{0, 0, 0, 1},
		},
	}
}
