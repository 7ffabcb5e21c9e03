package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTransactions(n int) []model.Transaction {
	txns := make([]model.Transaction, n)
	for i := range txns {
		txns[i] = model.Transaction{
			ID:          fmt.Sprintf("t%d", i+1),
			Description: fmt.Sprintf("MERCHANT %d", i+1),
			Type:        model.TransactionDebit,
		}
	}
	return txns
}

func testConfig() Config {
	return Config{MaxRetries: 1, RetryDelay: time.Millisecond, RateLimit: 10000}
}

func TestBatchClassifierAllBatchesSucceed(t *testing.T) {
	client := NewMockClient()
	client.Respond = EchoCategory("Software", model.TaxOfficeCosts, 0.9)

	c := NewBatchClassifier(client, testConfig())
	txns := makeTransactions(120)
	got := c.ClassifyBatch(context.Background(), txns)

	require.Len(t, got, 120)
	assert.Len(t, client.Calls(), 3)
	for i, s := range got {
		assert.Equal(t, txns[i].ID, s.TransactionID)
		assert.Equal(t, "Software", s.CategoryName)
		assert.InDelta(t, 0.9, s.ConfidenceScore, 1e-9)
	}

	call := client.Calls()[0]
	assert.Equal(t, SystemPrompt(), call.System)
	assert.Equal(t, 4000, call.MaxTokens)
}

func TestBatchClassifierIsolatesFailedBatch(t *testing.T) {
	echo := EchoCategory("Groceries", model.TaxNone, 0.85)
	client := NewMockClient()
	client.Respond = func(ctx context.Context, req Request) (string, error) {
		// Transaction 67 sits in the second batch and poisons it.
		if strings.Contains(req.User, `"id":"t67"`) {
			return `{"classifications": [{"transaction_id": "t51", `, nil
		}
		return echo(ctx, req)
	}

	c := NewBatchClassifier(client, testConfig())
	got := c.ClassifyBatch(context.Background(), makeTransactions(150))

	require.Len(t, got, 150)
	for i, s := range got {
		inFailedBatch := i >= 50 && i < 100
		if inFailedBatch {
			assert.Equal(t, model.UncategorizedName, s.CategoryName, "index %d", i)
			assert.Equal(t, model.TaxNone, s.TaxMapping)
			assert.False(t, s.IsTaxDeductible)
			assert.Zero(t, s.ConfidenceScore)
			assert.Equal(t, ReasonBatchFailed, s.Reasoning)
		} else {
			assert.Equal(t, "Groceries", s.CategoryName, "index %d", i)
		}
	}
}

func TestBatchClassifierProviderError(t *testing.T) {
	client := NewMockClient().Fail(errors.New("connection refused"))
	c := NewBatchClassifier(client, testConfig())

	got := c.ClassifyBatch(context.Background(), makeTransactions(3))
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Equal(t, model.UncategorizedName, s.CategoryName)
		assert.Zero(t, s.ConfidenceScore)
	}
}

func TestBatchClassifierRetriesTransientErrors(t *testing.T) {
	client := NewMockClient().
		Fail(&common.RetryableError{Err: errors.New("503"), Retryable: true})
	client.Respond = EchoCategory("Travel", model.TaxTravelCosts, 0.95)

	cfg := testConfig()
	cfg.MaxRetries = 3
	c := NewBatchClassifier(client, cfg)

	got := c.ClassifyBatch(context.Background(), makeTransactions(2))
	assert.Equal(t, "Travel", got[0].CategoryName)
	assert.Len(t, client.Calls(), 2)
}

func TestBatchClassifierDoesNotRetryParseErrors(t *testing.T) {
	client := NewMockClient().Reply("sorry, no").Reply("still no")
	cfg := testConfig()
	cfg.MaxRetries = 3
	c := NewBatchClassifier(client, cfg)

	got := c.ClassifyBatch(context.Background(), makeTransactions(1))
	assert.Equal(t, ReasonBatchFailed, got[0].Reasoning)
	assert.Len(t, client.Calls(), 1)
}

func TestBatchClassifierMissingAndDuplicateIDs(t *testing.T) {
	client := NewMockClient().Reply("```json\n" + `{"classifications": [
		{"transaction_id": "t1", "category_name": "First", "confidence_score": 0.9},
		{"transaction_id": "t1", "category_name": "Second", "confidence_score": 0.9},
		{"transaction_id": "ghost", "category_name": "Ghost", "confidence_score": 0.9}
	]}` + "\n```")
	c := NewBatchClassifier(client, testConfig())

	got := c.ClassifyBatch(context.Background(), makeTransactions(2))
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].CategoryName)
	assert.Equal(t, "t2", got[1].TransactionID)
	assert.Equal(t, model.UncategorizedName, got[1].CategoryName)
	assert.Equal(t, ReasonMissing, got[1].Reasoning)
}

func TestBatchClassifierCircuitBreaker(t *testing.T) {
	client := NewMockClient()
	client.Respond = func(context.Context, Request) (string, error) {
		return "", errors.New("boom")
	}

	cfg := testConfig()
	cfg.CircuitThreshold = 1
	cfg.CircuitReset = time.Hour
	c := NewBatchClassifier(client, cfg)

	got := c.ClassifyBatch(context.Background(), makeTransactions(150))
	require.Len(t, got, 150)
	assert.Len(t, client.Calls(), 1)
	assert.Equal(t, ReasonBatchFailed, got[0].Reasoning)
	assert.Equal(t, ReasonCircuitOpen, got[149].Reasoning)
}

func TestBatchClassifierParallelWorkersKeepOrder(t *testing.T) {
	client := NewMockClient()
	client.Respond = EchoCategory("Misc", model.TaxNone, 0.5)

	cfg := testConfig()
	cfg.Workers = 3
	cfg.BatchSize = 10

	var (
		mu    sync.Mutex
		calls []int
	)
	c := NewBatchClassifier(client, cfg, WithProgress(func(done, total, txns int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, total)
		calls = append(calls, done)
	}))

	txns := makeTransactions(45)
	got := c.ClassifyBatch(context.Background(), txns)
	for i := range txns {
		assert.Equal(t, txns[i].ID, got[i].TransactionID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestBatchClassifierBatchTimeout(t *testing.T) {
	client := NewMockClient()
	client.Respond = func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	cfg := testConfig()
	cfg.BatchTimeout = 20 * time.Millisecond
	c := NewBatchClassifier(client, cfg)

	got := c.ClassifyBatch(context.Background(), makeTransactions(2))
	assert.Equal(t, ReasonBatchFailed, got[0].Reasoning)
	assert.Equal(t, ReasonBatchFailed, got[1].Reasoning)
}

func TestBatchClassifierEmptyInput(t *testing.T) {
	c := NewBatchClassifier(NewMockClient(), testConfig())
	assert.Empty(t, c.ClassifyBatch(context.Background(), nil))
}
