// Package engine orchestrates classification and entity resolution: rule
// memory first, the AI classifier for the rest, and the learning loop that
// turns corrections back into rules.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/entity"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
	"github.com/Veraticus/spice-ledger/internal/rules"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Reasoning strings attached to results the engine produces itself.
const (
	ReasonRuleMatch     = "Matched by learned rule"
	ReasonAIUnavailable = "AI classification unavailable"
)

// Engine is the classification and entity-resolution engine.
type Engine struct {
	store           service.Storage
	classifier      ClassifierPort
	categories      *CategoryResolver
	matcher         *rules.Matcher
	entities        *entity.Resolver
	logger          *slog.Logger
	reviewThreshold float64
}

// Config holds configuration options for the engine.
type Config struct {
	Logger          *slog.Logger
	Weights         entity.Weights
	Thresholds      entity.Thresholds
	ReviewThreshold float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Weights:         entity.DefaultWeights(),
		Thresholds:      entity.DefaultThresholds(),
		ReviewThreshold: 0.8,
	}
}

// New creates an engine with the default configuration. classifier may be nil,
// in which case rule misses receive fallback results.
func New(store service.Storage, classifier ClassifierPort) *Engine {
	return NewWithConfig(store, classifier, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(store service.Storage, classifier ClassifierPort, config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:           store,
		classifier:      classifier,
		categories:      NewCategoryResolver(store),
		matcher:         rules.NewMatcher(store, logger),
		entities:        entity.NewResolver(config.Weights, config.Thresholds),
		logger:          logger,
		reviewThreshold: config.ReviewThreshold,
	}
}

// Categories exposes the engine's category resolver.
func (e *Engine) Categories() *CategoryResolver {
	return e.categories
}

// ClassifyTransactions classifies every transaction and returns one result per
// distinct id. AI failures become low-confidence fallback results; only store
// failures are returned as errors.
func (e *Engine) ClassifyTransactions(ctx context.Context, transactions []model.Transaction) (map[string]model.ClassificationResult, error) {
	results := make(map[string]model.ClassificationResult, len(transactions))
	if len(transactions) == 0 {
		return results, nil
	}

	set, err := e.matcher.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(transactions))
	var misses []model.Transaction

	for _, tx := range transactions {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}

		match := e.matcher.MatchRule(ctx, set, tx.Description, normalize.Description(tx.Description), tx.Type)
		if !match.Matched {
			misses = append(misses, tx)
			continue
		}

		results[tx.ID] = model.ClassificationResult{
			CategoryID:      match.CategoryID,
			CategoryName:    match.CategoryName,
			TaxMapping:      match.TaxMapping,
			IsTaxDeductible: match.IsTaxDeductible,
			ConfidenceScore: 1.0,
			Reasoning:       ReasonRuleMatch,
			Source:          model.SourceRule,
			RuleID:          match.RuleID,
		}
	}

	e.logger.Info("rule memory pass complete",
		"transactions", len(seen),
		"rule_hits", len(results),
		"misses", len(misses))

	if len(misses) == 0 {
		return results, nil
	}

	suggestions := e.suggest(ctx, misses)
	resolved := make(map[string]*model.Category)

	for _, tx := range misses {
		s, ok := suggestions[tx.ID]
		if !ok {
			s = model.FallbackSuggestion(tx.ID, ReasonAIUnavailable)
		}

		category, ok := resolved[s.CategoryName]
		if !ok {
			// A category is an expense exactly when it carries a tax mapping.
			category, err = e.categories.ResolveCategory(ctx, s.CategoryName, s.TaxMapping, s.TaxMapping != model.TaxNone)
			if err != nil {
				return nil, err
			}
			resolved[s.CategoryName] = category
		}

		results[tx.ID] = model.ClassificationResult{
			CategoryID:      category.ID,
			CategoryName:    category.Name,
			TaxMapping:      category.TaxMapping,
			IsTaxDeductible: s.IsTaxDeductible,
			ConfidenceScore: s.ConfidenceScore,
			Reasoning:       s.Reasoning,
			Source:          model.SourceAI,
			NeedsReview:     s.ConfidenceScore < e.reviewThreshold,
		}
	}

	return results, nil
}

// suggest asks the classifier about misses and indexes the answers by id.
func (e *Engine) suggest(ctx context.Context, misses []model.Transaction) map[string]model.ClassificationSuggestion {
	out := make(map[string]model.ClassificationSuggestion, len(misses))
	if e.classifier == nil {
		return out
	}
	for _, s := range e.classifier.ClassifyBatch(ctx, misses) {
		if _, dup := out[s.TransactionID]; !dup {
			out[s.TransactionID] = s
		}
	}
	return out
}

// RecordResults persists classification results onto stored transactions.
func (e *Engine) RecordResults(ctx context.Context, results map[string]model.ClassificationResult) error {
	for id, result := range results {
		if err := e.store.RecordClassification(ctx, id, result); err != nil {
			return fmt.Errorf("failed to record classification for %s: %w", id, err)
		}
	}
	return nil
}

// SeedRules installs the built-in system rules.
func (e *Engine) SeedRules(ctx context.Context) (rules.SeedReport, error) {
	return rules.NewSeeder(e.store, e.categories, e.logger).Seed(ctx, rules.SystemRules)
}
