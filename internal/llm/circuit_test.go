package llm

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	require.NoError(t, cb.allow())
	cb.recordFailure()
	require.NoError(t, cb.allow())
	cb.recordFailure()
	require.ErrorIs(t, cb.allow(), common.ErrCircuitOpen, "tripped after two failures")

	now = now.Add(time.Minute)
	require.NoError(t, cb.allow(), "trial allowed after reset period")
	require.ErrorIs(t, cb.allow(), common.ErrCircuitOpen, "only one trial per period")

	cb.recordSuccess()
	assert.NoError(t, cb.allow())
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := newCircuitBreaker(0, 0)
	for i := 0; i < 10; i++ {
		cb.recordFailure()
	}
	assert.NoError(t, cb.allow())
}
