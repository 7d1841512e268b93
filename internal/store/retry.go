package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMaxRetriesExceeded is returned when a write still fails with a busy
// error after exhausting the retry policy.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded: database locked by another process")

// RetryPolicy bounds retries of operations that fail with lock contention.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the fixed sleep between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the standard write retry policy:
// 3 attempts with a 100ms delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = def.Delay
	}
	return p
}

// withRetry runs op, retrying on lock-contention errors per the policy.
// Non-busy errors propagate immediately. After the last busy failure it
// returns ErrMaxRetriesExceeded wrapping the underlying error.
func withRetry(ctx context.Context, policy RetryPolicy, op func() error) error {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		// Real sleep, not a spin; honor cancellation while waiting.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
	return fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// isBusy reports whether err is SQLite lock contention (SQLITE_BUSY or
// SQLITE_LOCKED). modernc.org/sqlite does not export a stable error type,
// so this matches on the driver's error text.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
