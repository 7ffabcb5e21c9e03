package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError marks whether a failure is worth another attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// DefaultRetryOptions returns three attempts starting at 100ms, doubling up
// to 30s with 10% jitter.
func DefaultRetryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

func withRetryDefaults(opts service.RetryOptions) service.RetryOptions {
	def := DefaultRetryOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = def.InitialDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = def.MaxDelay
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = def.Multiplier
	}
	opts.Jitter = min(max(opts.Jitter, 0), 1)
	return opts
}

// backoff yields successive waits between attempts.
type backoff struct {
	opts service.RetryOptions
	next time.Duration
	rand func() float64
}

func newBackoff(opts service.RetryOptions) *backoff {
	return &backoff{opts: opts, next: opts.InitialDelay, rand: rand.Float64}
}

// after returns the wait following err. Rate limiting waits the full MaxDelay.
func (b *backoff) after(err error) time.Duration {
	delay := b.next
	if errors.Is(err, ErrRateLimit) {
		delay = b.opts.MaxDelay
	}
	b.next = min(time.Duration(float64(b.next)*b.opts.Multiplier), b.opts.MaxDelay)

	if b.opts.Jitter == 0 {
		return delay
	}
	spread := float64(delay) * b.opts.Jitter * (b.rand()*2 - 1)
	return delay + time.Duration(spread)
}

// WithRetry runs operation until it succeeds, fails with an error IsRetryable
// rejects, or uses up opts.MaxAttempts.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = withRetryDefaults(opts)
	wait := newBackoff(opts)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := wait.after(lastErr)
		slog.WarnContext(ctx, "operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, lastErr)
}
