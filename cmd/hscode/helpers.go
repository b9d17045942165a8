package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/harborline/hscode/internal/chapter"
	"github.com/harborline/hscode/internal/config"
	"github.com/harborline/hscode/internal/engine"
	"github.com/harborline/hscode/internal/llm"
	"github.com/harborline/hscode/internal/ranker"
	"github.com/harborline/hscode/internal/rules"
	"github.com/harborline/hscode/internal/semantic"
	"github.com/harborline/hscode/internal/storage"
)

// initStorage opens the configured database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/hscode/hscode.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildEngine assembles the full classification pipeline: predictor, rule
// registry, retriever, ranker and orchestrator. Sessions persist in SQLite so
// conversations survive restarts.
func buildEngine(store *storage.SQLiteStorage) (*engine.Engine, error) {
	logger := slog.Default()

	modelClient, err := llm.NewClient(config.LoadModelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	predictor, err := loadPredictor()
	if err != nil {
		return nil, err
	}

	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	r := ranker.New(
		predictor,
		registry,
		semantic.NewRetriever(modelClient, store, logger),
		store,
		logger,
	)

	return engine.NewWithConfig(r, registry, store, modelClient, logger, config.LoadEngineConfig()), nil
}

func loadPredictor() (*chapter.Predictor, error) {
	path := viper.GetString("chapters.path")
	if path == "" {
		return chapter.NewDefaultPredictor(), nil
	}
	patterns, overrides, err := chapter.LoadPatternsFile(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter patterns: %w", err)
	}
	return chapter.NewPredictor(patterns, overrides), nil
}

func loadRegistry() (*rules.Registry, error) {
	path := viper.GetString("rules.path")
	if path == "" {
		return rules.NewRegistry(rules.DefaultTrees()), nil
	}
	trees, err := rules.LoadTreesFile(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load decision trees: %w", err)
	}
	return rules.NewRegistry(trees), nil
}
