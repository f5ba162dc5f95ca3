package fetch

import (
	"context"
	"time"
)

// RetryPolicy bounds a retried operation: a hard attempt cap and a fixed
// delay between attempts. The retry-once patterns in this codebase (finicky
// scrapes, the LLM judge, weather) are all instances of this helper rather
// than inline duplicated attempts.
type RetryPolicy struct {
	Attempts int           // Total attempts, including the first
	Delay    time.Duration // Wait between attempts
	// ShouldRetry decides whether a failure is retryable. Nil retries all
	// errors.
	ShouldRetry func(error) bool
}

// Do runs fn until it succeeds, the attempt cap is reached, or the context
// ends. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
