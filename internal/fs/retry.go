package fs

import (
	"context"
	"fmt"
	"time"
)

const maxRetries = 5

// retryBase is the first backoff delay; tests shorten it.
var retryBase = 100 * time.Millisecond

// retry runs fn with exponential backoff while it fails with a transient error.
// It is used by capture, rename and remove.
func retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s failed permanently: %w", opName, err)
		}

		if attempt == maxRetries {
			break
		}

		if err := sleep(ctx, retryBase*(1<<(attempt-1))); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, maxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
