package chapter

import "github.com/harborline/hscode/internal/model"

// DefaultPatterns returns the built-in chapter trigger tables. Operators can
// extend or replace them with a YAML file (see LoadPatternsFile).
func DefaultPatterns() []model.ChapterPattern {
	return []model.ChapterPattern{
		{Chapter: "39", Triggers: []string{"plastic", "polymer", "polyethylene", "pvc", "acrylic", "resin"}},
		{Chapter: "40", Triggers: []string{"rubber", "latex", "tyre", "tire"}},
		{Chapter: "42", Triggers: []string{"leather", "handbag", "wallet", "saddle"}},
		{Chapter: "44", Triggers: []string{"wood", "timber", "plywood", "lumber"}},
		{Chapter: "48", Triggers: []string{"paper", "cardboard", "carton", "paperboard"}},
		{Chapter: "52", Triggers: []string{"cotton", "fabric", "woven fabric", "yarn", "denim"}},
		{Chapter: "54", Triggers: []string{"polyester", "nylon", "synthetic filament", "synthetic fabric"}},
		{Chapter: "61", Triggers: []string{"t-shirt", "knitted", "sweater", "hoodie", "jersey"}},
		{Chapter: "62", Triggers: []string{"shirt", "trousers", "jacket", "suit", "dress"}},
		{Chapter: "64", Triggers: []string{"shoe", "footwear", "boot", "sandal", "sneaker"}},
		{Chapter: "69", Triggers: []string{"ceramic", "porcelain", "earthenware", "tile"}},
		{Chapter: "70", Triggers: []string{"glass", "glassware", "mirror"}},
		{Chapter: "73", Triggers: []string{"steel", "iron", "screw", "bolt", "wire rope"}},
		{Chapter: "76", Triggers: []string{"aluminium", "aluminum", "foil"}},
		{Chapter: "84", Triggers: []string{"machine", "pump", "engine", "compressor", "laptop", "computer", "bearing"}},
		{Chapter: "85", Triggers: []string{"electric", "electronic", "battery", "cable", "phone", "smartphone", "headphone", "speaker", "led"}},
		{Chapter: "87", Triggers: []string{"vehicle", "car", "truck", "motorcycle", "brake", "clutch", "bumper", "chassis", "automotive"}},
		{Chapter: "90", Triggers: []string{"optical", "lens", "sensor", "medical instrument", "thermometer"}},
		{Chapter: "94", Triggers: []string{"furniture", "chair", "table", "sofa", "mattress", "lamp"}},
		{Chapter: "95", Triggers: []string{"toy", "game", "puzzle", "doll", "sports equipment"}},
	}
}

// DefaultOverrides returns the built-in functional override table. Overrides
// carry a priority large enough to out-rank any realistic sum of material
// trigger lengths, so that a "plastic toy" lands in chapter 95 rather than 39.
func DefaultOverrides() []model.FunctionalOverride {
	return []model.FunctionalOverride{
		{Trigger: "toy", Chapter: "95", Priority: 40},
		{Trigger: "game", Chapter: "95", Priority: 40},
		{Trigger: "furniture", Chapter: "94", Priority: 40},
		{Trigger: "footwear", Chapter: "64", Priority: 40},
		{Trigger: "brake", Chapter: "87", Priority: 40},
		{Trigger: "medical", Chapter: "90", Priority: 35},
	}
}
