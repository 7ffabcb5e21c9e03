package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearnFromCorrection(t *testing.T) {
	ctx := context.Background()
	classifier := &fakeClassifier{category: "Shopping", confidence: 0.4}
	eng, store := setupEngine(t, classifier)

	software, err := eng.Categories().ResolveCategory(ctx, "Software & IT", model.TaxOfficeCosts, true)
	require.NoError(t, err)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		debit("tx-a", "CARD PAYMENT TO THE JETBRAINS S.R.O."),
	}))

	outcome, err := eng.LearnFromCorrection(ctx, "tx-a", software.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, `Learned! Future transactions containing "JETBRAINS" will be categorized as "Software & IT"`, outcome.Message)
	require.NotNil(t, outcome.Rule)
	assert.Equal(t, "JETBRAINS", outcome.Rule.Keyword)
	assert.Equal(t, model.MatchContains, outcome.Rule.MatchType)
	assert.Equal(t, model.SourceAutoLearned, outcome.Rule.Source)
	assert.Equal(t, "tx-a", outcome.Rule.LearnedFrom)
	assert.True(t, outcome.Rule.IsTaxDeductible)

	tx, err := store.GetTransaction(ctx, "tx-a")
	require.NoError(t, err)
	assert.Equal(t, software.ID, tx.CategoryID)
	assert.False(t, tx.NeedsReview)
	assert.Equal(t, model.TaxOfficeCosts, tx.TaxMapping)

	// A new transaction with the keyword is now handled by the rule memory.
	results, err := eng.ClassifyTransactions(ctx, []model.Transaction{debit("tx-b", "JetBrains Americas INC")})
	require.NoError(t, err)
	assert.Equal(t, model.SourceRule, results["tx-b"].Source)
	assert.Equal(t, software.ID, results["tx-b"].CategoryID)
	assert.InDelta(t, 1.0, results["tx-b"].ConfidenceScore, 1e-9)
	assert.Empty(t, classifier.asked())
}

func TestLearnFromCorrectionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, nil)

	travel, err := eng.Categories().ResolveCategory(ctx, "Travel", model.TaxTravelCosts, true)
	require.NoError(t, err)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{debit("tx-1", "DIRECT DEBIT PAYMENT TO LNER TRAINS")}))

	first, err := eng.LearnFromCorrection(ctx, "tx-1", travel.ID)
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := eng.LearnFromCorrection(ctx, "tx-1", travel.ID)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, `Rule for "LNER" already exists`, second.Message)

	all, err := store.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLearnFromCorrectionRedirectsRule(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, nil)

	groceries, err := eng.Categories().ResolveCategory(ctx, "Groceries", model.TaxNone, true)
	require.NoError(t, err)
	dining, err := eng.Categories().ResolveCategory(ctx, "Dining & Takeaway", model.TaxNone, true)
	require.NoError(t, err)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		debit("tx-1", "COSTA COFFEE 1"),
		debit("tx-2", "COSTA COFFEE 2"),
	}))

	_, err = eng.LearnFromCorrection(ctx, "tx-1", groceries.ID)
	require.NoError(t, err)

	outcome, err := eng.LearnFromCorrection(ctx, "tx-2", dining.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, `Updated rule for "COSTA" to use category "Dining & Takeaway"`, outcome.Message)

	rule, err := store.FindRule(ctx, "COSTA", model.MatchContains)
	require.NoError(t, err)
	assert.Equal(t, dining.ID, rule.CategoryID)
	assert.Equal(t, "tx-1", rule.LearnedFrom, "provenance is kept on redirect")
}

func TestLearnFromCorrectionMissingTargets(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, nil)

	category, err := eng.Categories().ResolveCategory(ctx, "Travel", model.TaxTravelCosts, true)
	require.NoError(t, err)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{debit("tx-1", "EASYJET")}))

	outcome, err := eng.LearnFromCorrection(ctx, "nope", category.ID)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, MessageTransactionNotFound, outcome.Message)

	outcome, err = eng.LearnFromCorrection(ctx, "tx-1", "nope")
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, MessageCategoryNotFound, outcome.Message)

	all, err := store.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing written")

	tx, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Empty(t, tx.CategoryID)
}

func TestLearnFromCorrectionWithoutKeyword(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, nil)

	category, err := eng.Categories().ResolveCategory(ctx, "Transfers", model.TaxNone, true)
	require.NoError(t, err)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{debit("tx-1", "CARD PAYMENT TO")}))

	outcome, err := eng.LearnFromCorrection(ctx, "tx-1", category.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.Rule)

	tx, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, category.ID, tx.CategoryID)
}
