// Package retry provides the single bounded-retry-with-backoff helper used by
// every outbound call, replacing the ad-hoc retry loops the service grew out
// of.
package retry

import (
	"context"
	"fmt"
	"time"
)

const maxDelay = 30 * time.Second

// Policy bounds retries for outbound provider and ledger calls.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the 3-attempt exponential backoff used across the
// service.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Do runs op up to MaxAttempts times, sleeping BaseDelay * 2^attempt between
// failures (capped at 30s). It stops early when ctx is cancelled and returns
// the last error wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay(attempt - 1)):
			}
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("retry: %d attempts exhausted: %w", attempts, lastErr)
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
