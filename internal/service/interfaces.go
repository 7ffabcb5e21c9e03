// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Lookups that find nothing return an error wrapping common.ErrNotFound.
// Creates that collide with a unique key return an error wrapping common.ErrDuplicateEntry.

// RuleStore persists keyword rules.
type RuleStore interface {
	// ListRules returns every rule ordered by priority, then usage, then keyword.
	ListRules(ctx context.Context) ([]model.Rule, error)
	GetRule(ctx context.Context, id string) (*model.Rule, error)
	FindRule(ctx context.Context, keyword string, matchType model.MatchType) (*model.Rule, error)
	CreateRule(ctx context.Context, rule *model.Rule) error
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id string) error
	IncrementRuleUsage(ctx context.Context, id string) error
}

// CategoryStore persists the global category catalog. Names are unique.
type CategoryStore interface {
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	NeedsReviewOnly  bool
	UnclassifiedOnly bool
	Limit            int
}

// TransactionStore persists transactions and their classification state.
type TransactionStore interface {
	// SaveTransactions upserts by id without touching existing classification state.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	RecordClassification(ctx context.Context, transactionID string, result model.ClassificationResult) error
	// ApplyCorrection writes a user-chosen category and clears needs_review.
	ApplyCorrection(ctx context.Context, transactionID string, category model.Category) error
}

// EntityStore persists registered entities.
type EntityStore interface {
	SaveEntity(ctx context.Context, entity *model.Entity) error
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	ListEntities(ctx context.Context, ownerID string) ([]model.Entity, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RuleStore
	CategoryStore
	TransactionStore
	EntityStore

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter randomizes each wait by up to this fraction either way. Zero disables it.
	Jitter float64
}
