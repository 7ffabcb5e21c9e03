package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeResolver struct {
	store *storage.SQLiteStorage
}

func (r storeResolver) ResolveCategory(ctx context.Context, name string, mapping model.TaxMapping, isExpense bool) (*model.Category, error) {
	c, err := r.store.GetCategoryByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	typ := model.CategoryTypeIncome
	if isExpense {
		typ = model.CategoryTypeExpense
	}
	c = &model.Category{Name: name, Type: typ, TaxMapping: mapping}
	return c, r.store.CreateCategory(ctx, c)
}

func TestSeederSeed(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t).Storage
	seeder := NewSeeder(store, storeResolver{store}, nil)

	seeds := []SeedRule{
		{"salary", model.MatchContains, "Salary", model.TransactionCredit, "Salary payment", 10},
		{"github", model.MatchContains, "Software & IT", "", "GitHub", 10},
		{"widgets", model.MatchContains, "Widgets", "", "Unknown category", 1},
	}

	report, err := seeder.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Created: 3}, report)

	salary, err := store.GetCategoryByName(ctx, "Salary")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeIncome, salary.Type)

	gh, err := store.FindRule(ctx, "github", model.MatchContains)
	require.NoError(t, err)
	assert.Equal(t, model.SourceSystem, gh.Source)
	assert.Equal(t, model.TaxOfficeCosts, gh.TaxMapping)
	assert.True(t, gh.IsTaxDeductible)

	// A user takes over one keyword; reseeding leaves it alone and refreshes the rest.
	gh.Source = model.SourceManual
	require.NoError(t, store.UpdateRule(ctx, gh))

	report, err = seeder.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Refreshed: 2, Skipped: 1}, report)

	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)
}

func TestSystemRulesReferenceKnownCategories(t *testing.T) {
	seen := map[string]bool{}
	for _, seed := range SystemRules {
		_, ok := SeedCategories[seed.CategoryName]
		assert.True(t, ok, "seed %q references unknown category %q", seed.Keyword, seed.CategoryName)
		assert.True(t, seed.MatchType.Valid(), seed.Keyword)

		key := string(seed.MatchType) + ":" + seed.Keyword
		assert.False(t, seen[key], "duplicate seed %q", seed.Keyword)
		seen[key] = true
	}
}
