package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

var errBoom = errors.New("boom")

func TestWithRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503"), Retryable: true}
	permanent := &RetryableError{Err: errors.New("400"), Retryable: false}

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", wantCalls: 1},
		{name: "recovers", failures: []error{transient, transient}, wantCalls: 3},
		{name: "gives up", failures: []error{transient, transient, transient, transient}, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "permanent stops at once", failures: []error{permanent}, wantCalls: 1, wantErr: permanent},
		{name: "unmarked error is not retried", failures: []error{errBoom}, wantCalls: 1, wantErr: errBoom},
		{name: "rate limit is retried", failures: []error{ErrRateLimit}, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, fastRetry)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		return nil
	}, fastRetry)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBackoff(t *testing.T) {
	opts := withRetryDefaults(service.RetryOptions{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   4,
	})

	t.Run("grows to the cap", func(t *testing.T) {
		b := newBackoff(opts)
		assert.Equal(t, 100*time.Millisecond, b.after(errBoom))
		assert.Equal(t, 400*time.Millisecond, b.after(errBoom))
		assert.Equal(t, time.Second, b.after(errBoom))
		assert.Equal(t, time.Second, b.after(errBoom))
	})

	t.Run("rate limit waits the cap", func(t *testing.T) {
		b := newBackoff(opts)
		assert.Equal(t, time.Second, b.after(ErrRateLimit))
		assert.Equal(t, 400*time.Millisecond, b.after(errBoom))
	})

	t.Run("jitter stays within the spread", func(t *testing.T) {
		jittered := opts
		jittered.Jitter = 0.1
		b := newBackoff(jittered)

		b.rand = func() float64 { return 0 }
		assert.InDelta(t, float64(90*time.Millisecond), float64(b.after(errBoom)), float64(time.Microsecond))
		b.rand = func() float64 { return 1 }
		assert.InDelta(t, float64(440*time.Millisecond), float64(b.after(errBoom)), float64(time.Microsecond))
	})
}

func TestWithRetryDefaults(t *testing.T) {
	opts := withRetryDefaults(service.RetryOptions{Jitter: 3})
	assert.Equal(t, DefaultRetryOptions().MaxAttempts, opts.MaxAttempts)
	assert.Equal(t, DefaultRetryOptions().InitialDelay, opts.InitialDelay)
	assert.InDelta(t, 1.0, opts.Jitter, 1e-9)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestUserError(t *testing.T) {
	err := NewUserError("Rule already exists", ErrDuplicateEntry)
	assert.Equal(t, "Rule already exists: duplicate entry", err.Error())
	require.ErrorIs(t, err, ErrDuplicateEntry)

	bare := NewUserError("nothing to do", nil)
	assert.Equal(t, "nothing to do", bare.Error())
}
