package model

// ChapterPattern maps a two-digit chapter to the lexical triggers that hint a
// query belongs to it. Static configuration data.
type ChapterPattern struct {
	Chapter  string   `yaml:"chapter"`
	Triggers []string `yaml:"triggers"`
}

// FunctionalOverride forces a chapter to the top of the prediction when its
// trigger appears, regardless of how strongly material words pull elsewhere.
// The priority value is added directly to the chapter's pattern score.
type FunctionalOverride struct {
	Trigger  string `yaml:"trigger"`
	Chapter  string `yaml:"chapter"`
	Priority int    `yaml:"priority"`
}

// ChapterPrediction is one entry of the predictor's ranked output.
type ChapterPrediction struct {
	Chapter string
	Score   int
}
