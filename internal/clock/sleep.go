// Package clock provides cancellation-aware time helpers.
package clock

import (
	"context"
	"time"
)

// SleepWithContext blocks for d or until ctx is done, whichever comes first.
// Returns the context error when interrupted.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
