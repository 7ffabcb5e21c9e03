package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// DefaultBatchSize is the number of transactions sent per request.
const DefaultBatchSize = 50

// Fallback reasons recorded on synthetic suggestions.
const (
	ReasonBatchFailed = "Failed to classify automatically"
	ReasonMissing     = "No classification returned for this transaction"
	ReasonCircuitOpen = "Classifier temporarily unavailable"
)

// ProgressFunc is called after each batch completes.
type ProgressFunc func(batchesDone, batchesTotal, transactionsDone int)

// Option configures a BatchClassifier.
type Option func(*BatchClassifier)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *BatchClassifier) { c.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *BatchClassifier) { c.logger = logger }
}

// BatchClassifier sends transactions to a Client in fixed-size batches.
// A failed or unparseable batch falls back to Uncategorized for every
// transaction in that batch only.
type BatchClassifier struct {
	client       Client
	limiter      *rateLimiter
	breaker      *circuitBreaker
	cache        *suggestionCache
	logger       *slog.Logger
	progress     ProgressFunc
	systemPrompt string
	retryOpts    service.RetryOptions
	batchTimeout time.Duration
	temperature  float64
	batchSize    int
	workers      int
	maxTokens    int
}

// NewBatchClassifier wraps client with batching, retries, rate limiting and a circuit breaker.
func NewBatchClassifier(client Client, cfg Config, opts ...Option) *BatchClassifier {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
	if retryOpts.MaxAttempts <= 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay <= 0 {
		retryOpts.InitialDelay = time.Second
	}

	c := &BatchClassifier{
		client:       client,
		limiter:      newRateLimiter(cfg.RateLimit),
		breaker:      newCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitReset),
		cache:        newSuggestionCache(cfg.CacheTTL),
		logger:       slog.Default(),
		systemPrompt: SystemPrompt(),
		retryOpts:    retryOpts,
		batchTimeout: cfg.BatchTimeout,
		temperature:  cfg.Temperature,
		batchSize:    cfg.BatchSize,
		workers:      cfg.Workers,
		maxTokens:    cfg.MaxTokens,
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.workers <= 0 {
		c.workers = 1
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 4000
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyBatch returns exactly one suggestion per input transaction, in input
// order. Transactions with the same cleaned description and direction are
// sent once and share the answer; answers cached from earlier calls are
// reused without a request.
func (c *BatchClassifier) ClassifyBatch(ctx context.Context, transactions []model.Transaction) []model.ClassificationSuggestion {
	out := make([]model.ClassificationSuggestion, len(transactions))
	if len(transactions) == 0 {
		return out
	}

	var (
		pending []model.Transaction
		keys    []string
		covers  [][]int
		cached  int
	)
	byKey := make(map[string]int)
	for i, txn := range transactions {
		key := cacheKey(txn)
		if key == "" {
			pending = append(pending, txn)
			keys = append(keys, "")
			covers = append(covers, []int{i})
			continue
		}
		if s, ok := c.cache.get(key); ok {
			s.TransactionID = txn.ID
			out[i] = s
			cached++
			continue
		}
		if p, ok := byKey[key]; ok {
			covers[p] = append(covers[p], i)
			continue
		}
		byKey[key] = len(pending)
		pending = append(pending, txn)
		keys = append(keys, key)
		covers = append(covers, []int{i})
	}

	if len(pending) < len(transactions) {
		c.logger.Debug("reusing suggestions",
			"transactions", len(transactions),
			"requested", len(pending),
			"cached", cached)
	}

	answers := c.classifyPending(ctx, pending, covers, cached)
	for p, s := range answers {
		if keys[p] != "" {
			c.cache.set(keys[p], s)
		}
		for _, i := range covers[p] {
			s.TransactionID = transactions[i].ID
			out[i] = s
		}
	}
	return out
}

// classifyPending sends pending in batches. Progress counts every input
// transaction a pending one answers for, starting from alreadyDone.
func (c *BatchClassifier) classifyPending(ctx context.Context, pending []model.Transaction, covers [][]int, alreadyDone int) []model.ClassificationSuggestion {
	answers := make([]model.ClassificationSuggestion, len(pending))
	if len(pending) == 0 {
		if c.progress != nil {
			c.progress(0, 0, alreadyDone)
		}
		return answers
	}

	total := (len(pending) + c.batchSize - 1) / c.batchSize

	var (
		mu       sync.Mutex
		done     int
		doneTxns = alreadyDone
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, c.workers)

	for b := 0; b < total; b++ {
		start := b * c.batchSize
		end := min(start+c.batchSize, len(pending))

		wg.Add(1)
		sem <- struct{}{}
		go func(index, start, end int) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each batch writes only its own slice of answers.
			c.classifyOne(ctx, index, pending[start:end], answers[start:end])

			mu.Lock()
			done++
			for _, positions := range covers[start:end] {
				doneTxns += len(positions)
			}
			if c.progress != nil {
				c.progress(done, total, doneTxns)
			}
			mu.Unlock()
		}(b, start, end)
	}
	wg.Wait()

	return answers
}

func (c *BatchClassifier) classifyOne(ctx context.Context, index int, batch []model.Transaction, out []model.ClassificationSuggestion) {
	if err := c.breaker.allow(); err != nil {
		c.logger.Warn("skipping batch", "batch", index, "size", len(batch), "error", err)
		fillFallback(batch, out, ReasonCircuitOpen)
		return
	}

	suggestions, err := c.request(ctx, batch)
	if err != nil {
		c.breaker.recordFailure()
		c.logger.Warn("batch classification failed, using fallback",
			"batch", index,
			"size", len(batch),
			"error", err)
		fillFallback(batch, out, ReasonBatchFailed)
		return
	}
	c.breaker.recordSuccess()

	byID := make(map[string]model.ClassificationSuggestion, len(suggestions))
	for _, s := range suggestions {
		if _, seen := byID[s.TransactionID]; !seen {
			byID[s.TransactionID] = s
		}
	}

	missing := 0
	for i, txn := range batch {
		s, ok := byID[txn.ID]
		if !ok {
			missing++
			out[i] = model.FallbackSuggestion(txn.ID, ReasonMissing)
			continue
		}
		out[i] = s
	}

	c.logger.Info("batch classified",
		"batch", index,
		"size", len(batch),
		"missing", missing)
}

func (c *BatchClassifier) request(ctx context.Context, batch []model.Transaction) ([]model.ClassificationSuggestion, error) {
	if c.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.batchTimeout)
		defer cancel()
	}

	user, err := UserPrompt(batch)
	if err != nil {
		return nil, err
	}

	var suggestions []model.ClassificationSuggestion
	err = common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		raw, err := c.client.Complete(ctx, Request{
			System:      c.systemPrompt,
			User:        user,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return err
		}

		parsed, err := ParseResponse(raw)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		suggestions = parsed
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("classify batch of %d: %w", len(batch), err)
	}
	return suggestions, nil
}

func fillFallback(batch []model.Transaction, out []model.ClassificationSuggestion, reason string) {
	for i, txn := range batch {
		out[i] = model.FallbackSuggestion(txn.ID, reason)
	}
}
