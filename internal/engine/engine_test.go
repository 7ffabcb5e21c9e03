package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/rules"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier answers every transaction with the same category and records
// which ids it was asked about.
type fakeClassifier struct {
	category   string
	mapping    model.TaxMapping
	seen       []string
	confidence float64
	mu         sync.Mutex
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, transactions []model.Transaction) []model.ClassificationSuggestion {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.ClassificationSuggestion, 0, len(transactions))
	for _, tx := range transactions {
		f.seen = append(f.seen, tx.ID)
		out = append(out, model.ClassificationSuggestion{
			TransactionID:   tx.ID,
			CategoryName:    f.category,
			TaxMapping:      f.mapping,
			IsTaxDeductible: f.mapping != model.TaxNone,
			Reasoning:       "fake",
			ConfidenceScore: f.confidence,
		})
	}
	return out
}

func (f *fakeClassifier) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func setupEngine(t *testing.T, classifier ClassifierPort) (*Engine, *storage.SQLiteStorage) {
	t.Helper()

	store := testutil.SetupTestDB(t).Storage
	return New(store, classifier), store
}

func debit(id, description string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Description: description,
		Amount:      decimal.RequireFromString("-12.50"),
		Type:        model.TransactionDebit,
	}
}

func addRule(t *testing.T, store *storage.SQLiteStorage, keyword string, category *model.Category) *model.Rule {
	t.Helper()
	rule := &model.Rule{
		Keyword:         keyword,
		MatchType:       model.MatchContains,
		CategoryID:      category.ID,
		TaxMapping:      category.TaxMapping,
		IsTaxDeductible: category.IsTaxDeductible(),
		Source:          model.SourceManual,
	}
	require.NoError(t, store.CreateRule(context.Background(), rule))
	return rule
}

func TestClassifyTransactionsRulesFirst(t *testing.T) {
	ctx := context.Background()
	classifier := &fakeClassifier{category: "Software & IT", mapping: model.TaxOfficeCosts, confidence: 0.92}
	eng, store := setupEngine(t, classifier)

	groceries, err := eng.Categories().ResolveCategory(ctx, "Groceries", model.TaxNone, true)
	require.NoError(t, err)
	rule := addRule(t, store, "TESCO", groceries)

	results, err := eng.ClassifyTransactions(ctx, []model.Transaction{
		debit("t1", "CARD PAYMENT TO TESCO STORES 1234"),
		debit("t2", "GITHUB.COM SUBSCRIPTION"),
		debit("t1", "duplicate id is ignored"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	hit := results["t1"]
	assert.Equal(t, model.SourceRule, hit.Source)
	assert.InDelta(t, 1.0, hit.ConfidenceScore, 1e-9)
	assert.Equal(t, ReasonRuleMatch, hit.Reasoning)
	assert.Equal(t, groceries.ID, hit.CategoryID)
	assert.Equal(t, "Groceries", hit.CategoryName)
	assert.Equal(t, rule.ID, hit.RuleID)
	assert.False(t, hit.NeedsReview)

	ai := results["t2"]
	assert.Equal(t, model.SourceAI, ai.Source)
	assert.Equal(t, "Software & IT", ai.CategoryName)
	assert.Equal(t, model.TaxOfficeCosts, ai.TaxMapping)
	assert.False(t, ai.NeedsReview)

	assert.Equal(t, []string{"t2"}, classifier.asked(), "rule hits never reach the classifier")

	stored, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)

	created, err := store.GetCategoryByName(ctx, "Software & IT")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeExpense, created.Type)
	assert.Equal(t, ai.CategoryID, created.ID)
}

func TestClassifyTransactionsCategoryTypeFollowsTaxMapping(t *testing.T) {
	tests := []struct {
		name       string
		tx         model.Transaction
		mapping    model.TaxMapping
		wantType   model.CategoryType
		deductible bool
	}{
		{
			name: "mapped credit is an expense",
			tx: model.Transaction{
				ID:          "t1",
				Description: "REFUND STAPLES",
				Amount:      decimal.RequireFromString("20.00"),
				Type:        model.TransactionCredit,
			},
			mapping:    model.TaxOfficeCosts,
			wantType:   model.CategoryTypeExpense,
			deductible: true,
		},
		{
			name:     "unmapped debit is income",
			tx:       debit("t1", "POCKET MONEY"),
			mapping:  model.TaxNone,
			wantType: model.CategoryTypeIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng, store := setupEngine(t, &fakeClassifier{category: "Mixed", mapping: tt.mapping, confidence: 0.9})

			_, err := eng.ClassifyTransactions(ctx, []model.Transaction{tt.tx})
			require.NoError(t, err)

			created, err := store.GetCategoryByName(ctx, "Mixed")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, created.Type)
			assert.Equal(t, tt.deductible, created.IsTaxDeductible())
		})
	}
}

func TestClassifyTransactionsReviewThreshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		review     bool
	}{
		{"below threshold", 0.79, true},
		{"at threshold", 0.8, false},
		{"certain", 1, false},
		{"fallback", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := setupEngine(t, &fakeClassifier{category: "Shopping", confidence: tt.confidence})
			results, err := eng.ClassifyTransactions(context.Background(), []model.Transaction{debit("t1", "SOMETHING NEW")})
			require.NoError(t, err)
			assert.Equal(t, tt.review, results["t1"].NeedsReview)
		})
	}
}

func TestClassifyTransactionsWithoutClassifier(t *testing.T) {
	eng, store := setupEngine(t, nil)

	results, err := eng.ClassifyTransactions(context.Background(), []model.Transaction{debit("t1", "MYSTERY"), debit("t2", "")})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, id := range []string{"t1", "t2"} {
		r := results[id]
		assert.Equal(t, model.UncategorizedName, r.CategoryName)
		assert.Equal(t, model.TaxNone, r.TaxMapping)
		assert.Zero(t, r.ConfidenceScore)
		assert.True(t, r.NeedsReview)
		assert.Equal(t, ReasonAIUnavailable, r.Reasoning)
	}

	categories, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1, "fallback category created once")
}

func TestClassifyTransactionsEmpty(t *testing.T) {
	eng, _ := setupEngine(t, nil)
	results, err := eng.ClassifyTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// orphanRules serves a rule whose category no longer exists.
type orphanRules struct {
	*storage.SQLiteStorage
}

func (orphanRules) ListRules(context.Context) ([]model.Rule, error) {
	return []model.Rule{{ID: "r1", Keyword: "ALDI", MatchType: model.MatchContains, CategoryID: "gone"}}, nil
}

func TestClassifyTransactionsRuleWithoutCategoryGoesToAI(t *testing.T) {
	classifier := &fakeClassifier{category: "Groceries", confidence: 0.9}
	_, store := setupEngine(t, nil)
	eng := New(orphanRules{store}, classifier)

	results, err := eng.ClassifyTransactions(context.Background(), []model.Transaction{debit("t1", "ALDI 123")})
	require.NoError(t, err)
	assert.Equal(t, model.SourceAI, results["t1"].Source)
	assert.Equal(t, []string{"t1"}, classifier.asked())
}

func TestClassifyTransactionsIsolatesFailedBatch(t *testing.T) {
	client := llm.NewMockClient()
	echo := llm.EchoCategory("Travel", model.TaxTravelCosts, 0.95)
	client.Respond = func(ctx context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.User, `"id":"t067"`) {
			return `{"classifications": [`, nil
		}
		return echo(ctx, req)
	}

	classifier := llm.NewBatchClassifier(client, llm.Config{BatchSize: 50, MaxRetries: 1, RateLimit: 1000})
	eng, _ := setupEngine(t, classifier)

	txns := make([]model.Transaction, 0, 120)
	for i := 1; i <= 120; i++ {
		txns = append(txns, debit(fmt.Sprintf("t%03d", i), fmt.Sprintf("TRAIN TICKET %d", i)))
	}

	results, err := eng.ClassifyTransactions(context.Background(), txns)
	require.NoError(t, err)
	require.Len(t, results, 120)

	summary := model.Summarize(results)
	assert.Equal(t, 50, summary.Fallbacks)
	assert.Equal(t, 50, summary.NeedsReview)
	assert.Equal(t, 120, summary.AIResults)

	for i := 1; i <= 120; i++ {
		r := results[fmt.Sprintf("t%03d", i)]
		if i > 50 && i <= 100 {
			assert.Equal(t, model.UncategorizedName, r.CategoryName, "t%03d", i)
			assert.Equal(t, llm.ReasonBatchFailed, r.Reasoning)
			continue
		}
		assert.Equal(t, "Travel", r.CategoryName, "t%03d", i)
		assert.False(t, r.NeedsReview)
	}
}

func TestRecordResults(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, &fakeClassifier{category: "Shopping", confidence: 0.5})

	txns := []model.Transaction{debit("t1", "AMAZON")}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	results, err := eng.ClassifyTransactions(ctx, txns)
	require.NoError(t, err)
	require.NoError(t, eng.RecordResults(ctx, results))

	stored, err := store.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, results["t1"].CategoryID, stored.CategoryID)
	assert.True(t, stored.NeedsReview)

	err = eng.RecordResults(ctx, map[string]model.ClassificationResult{"missing": results["t1"]})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSeedRules(t *testing.T) {
	ctx := context.Background()
	eng, store := setupEngine(t, nil)

	report, err := eng.SeedRules(ctx)
	require.NoError(t, err)
	assert.Positive(t, report.Created)
	assert.Equal(t, len(rules.SystemRules), report.Created+report.Refreshed)

	results, err := eng.ClassifyTransactions(ctx, []model.Transaction{debit("t1", "CARD PAYMENT TO TESCO STORES 1234")})
	require.NoError(t, err)
	assert.Equal(t, model.SourceRule, results["t1"].Source)
	assert.Equal(t, "Groceries", results["t1"].CategoryName)

	again, err := eng.SeedRules(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, len(rules.SystemRules), again.Refreshed)

	all, err := store.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, report.Created)
}
