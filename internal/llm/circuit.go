package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// circuitBreaker trips after threshold consecutive batch failures and lets a
// single trial batch through once resetAfter has elapsed.
type circuitBreaker struct {
	lastFailure      time.Time
	now              func() time.Time
	resetAfter       time.Duration
	threshold        int
	consecutiveFails int
	mu               sync.Mutex
}

func newCircuitBreaker(threshold int, resetAfter time.Duration) *circuitBreaker {
	if resetAfter <= 0 {
		resetAfter = 30 * time.Second
	}
	return &circuitBreaker{threshold: threshold, resetAfter: resetAfter, now: time.Now}
}

// allow returns nil when a call may proceed and an error wrapping
// common.ErrCircuitOpen otherwise. A threshold of zero disables the breaker.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.threshold <= 0 || cb.consecutiveFails < cb.threshold {
		return nil
	}
	if wait := cb.resetAfter - cb.now().Sub(cb.lastFailure); wait > 0 {
		return fmt.Errorf("%w after %d consecutive failures, next trial in %s",
			common.ErrCircuitOpen, cb.consecutiveFails, wait.Round(time.Second))
	}
	// Half-open: one trial; a failure re-arms the timer.
	cb.lastFailure = cb.now()
	return nil
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFails = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFails++
	cb.lastFailure = cb.now()
}
