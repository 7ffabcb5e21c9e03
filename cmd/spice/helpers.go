package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/storage/postgres"
)

// openStore opens the configured record store and brings its schema up to date.
func (a *app) openStore(ctx context.Context) (service.Storage, error) {
	var (
		store service.Storage
		err   error
	)

	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, postgres.Config{URL: a.cfg.Database.URL}, slog.Default())
	default:
		store, err = storage.NewSQLiteStorage(a.cfg.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newClassifier builds the AI adapter. It returns nil without error when no
// API key is configured so that rule-only classification still works.
func (a *app) newClassifier(progress llm.ProgressFunc) (engine.ClassifierPort, error) {
	llmCfg, err := a.cfg.LLM.ClientConfig()
	if errors.Is(err, common.ErrMissingConfig) {
		slog.Warn("AI classification disabled", "reason", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	opts := []llm.Option{llm.WithLogger(slog.Default())}
	if progress != nil {
		opts = append(opts, llm.WithProgress(progress))
	}
	return llm.NewBatchClassifier(client, llmCfg, opts...), nil
}

func (a *app) newEngine(store service.Storage, classifier engine.ClassifierPort) *engine.Engine {
	return engine.NewWithConfig(store, classifier, engine.Config{
		Logger:          slog.Default(),
		Weights:         a.cfg.Entity.Weights,
		Thresholds:      a.cfg.Entity.Thresholds(),
		ReviewThreshold: a.cfg.Classification.ReviewThreshold,
	})
}
