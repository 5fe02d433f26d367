package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy decides how many attempts an operation gets and how long to pause
// between them. Callers never inspect the error to decide whether to retry:
// every failed attempt counts the same.
type Policy interface {
	// MaxAttempts is the total number of attempts (including the first try).
	MaxAttempts() int

	// Delay returns the pause before retry number attempt (1-based).
	Delay(attempt int) time.Duration
}

// FixedDelay retries with a constant pause and no jitter.
type FixedDelay struct {
	Attempts int
	Pause    time.Duration
}

// MaxAttempts returns the configured attempt count, minimum 1.
func (f FixedDelay) MaxAttempts() int {
	if f.Attempts < 1 {
		return 1
	}
	return f.Attempts
}

// Delay returns the constant pause regardless of attempt number.
func (f FixedDelay) Delay(int) time.Duration {
	return f.Pause
}

// DoVal executes fn under the policy, returning the first successful value.
// Context cancellation stops retries immediately. The last error is returned
// after the final attempt.
func DoVal[T any](ctx context.Context, p Policy, onRetry func(attempt int, err error), fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts(); attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= p.MaxAttempts()-1 {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an onRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
