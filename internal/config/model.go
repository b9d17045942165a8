// Package config provides configuration utilities for the application.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/harborline/hscode/internal/engine"
	"github.com/harborline/hscode/internal/llm"
)

// LoadModelConfig assembles the model client configuration from Viper.
// Precedence is config file first, then HSCODE_ environment variables; the
// "local" provider needs no credentials and is the default for development.
func LoadModelConfig() llm.Config {
	cfg := llm.Config{
		Provider:       viper.GetString("model.provider"),
		APIKey:         viper.GetString("model.api_key"),
		BaseURL:        viper.GetString("model.base_url"),
		Model:          viper.GetString("model.model"),
		EmbeddingModel: viper.GetString("model.embedding_model"),
		MaxRetries:     viper.GetInt("model.max_retries"),
		RateLimit:      viper.GetInt("model.rate_limit"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "local"
	}
	if v := viper.GetDuration("model.retry_delay"); v > 0 {
		cfg.RetryDelay = v
	}
	if v := viper.GetDuration("model.cache_ttl"); v > 0 {
		cfg.CacheTTL = v
	}
	if v := viper.GetDuration("model.timeout"); v > 0 {
		cfg.Timeout = v
	} else {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

// LoadEngineConfig reads orchestrator thresholds from Viper, falling back to
// the engine defaults for anything unset.
func LoadEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if v := viper.GetFloat64("engine.high_confidence"); v > 0 {
		cfg.HighConfidence = v
	}
	if v := viper.GetFloat64("engine.min_margin"); v > 0 {
		cfg.MinMargin = v
	}
	if v := viper.GetInt("engine.max_rounds"); v > 0 {
		cfg.MaxRounds = v
	}
	if v := viper.GetFloat64("engine.capped_confidence"); v > 0 {
		cfg.CappedConfidence = v
	}
	return cfg
}
