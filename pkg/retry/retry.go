// Package retry wraps bounded exponential-backoff retries around fallible operations.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Do invokes op until it succeeds, the attempt budget is spent, or ctx is
// done. Delays grow exponentially from baseDelay. maxAttempts counts the
// first call, so maxAttempts=1 means no retries.
func Do(ctx context.Context, maxAttempts uint64, baseDelay time.Duration, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = baseDelay

	return backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), maxAttempts-1))
}

// Permanent marks err as non-retryable so Do stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
