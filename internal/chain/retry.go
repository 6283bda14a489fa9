package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &connerr.ConnectorError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: connerr.ExitUpstream,
	}

	ErrRateLimited = &connerr.ConnectorError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: connerr.ExitUpstream,
	}
)

// RetryConfig configures retry behavior for idempotent reads.
// Builds, broadcasts and KMS writes are never retried.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the read retry configuration:
// 3 attempts with delays of roughly 200ms and 400ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

// Retry executes a read with the default configuration.
func Retry[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes a read with exponential backoff.
// Only errors classified by IsRetryable trigger another attempt.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func(context.Context) (T, error)) (T, error) {
	var result T
	var err error

	attempts := max(cfg.MaxAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = operation(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return result, err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff(attempt, cfg.BaseDelay, cfg.MaxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("read failed after %d attempts: %w", attempts, err)
}

// backoff returns the jittered delay before the next attempt.
func backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay << attempt
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: jitter does not need cryptographic randomness
}

// IsRetryable returns true if a read error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, connerr.ErrNetworkError) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WrapRetryable marks an error as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
