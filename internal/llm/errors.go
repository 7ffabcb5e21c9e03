package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// wrapProviderError marks err retryable or not. statusCode is 0 when unknown,
// in which case the error text is inspected.
func wrapProviderError(provider string, err error, statusCode int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	retryable := false
	switch {
	case statusCode == 429:
		return &common.RetryableError{Err: fmt.Errorf("%s: %w: %w", provider, common.ErrRateLimit, err), Retryable: true}
	case statusCode > 0:
		retryable = retryableStatus(statusCode)
	default:
		retryable = looksTransient(err)
	}

	return &common.RetryableError{Err: fmt.Errorf("%s request failed: %w", provider, err), Retryable: retryable}
}

func looksTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "connection refused", "rate limit", "overloaded", "429", "500", "502", "503", "504", "529"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
