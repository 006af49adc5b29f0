package resilience

import (
	"context"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
)

// RetryConfig parametrizes the retry decorator.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Multiplier  float64
}

// RetryAll treats every error as retryable.
func RetryAll(error) bool { return true }

// Retry returns a decorator that re-invokes the stage on retryable
// failures, sleeping BaseBackoff × Multiplier^(attempt-1) between
// attempts. The final error is returned once attempts are exhausted, and
// a non-retryable error is returned immediately. Each backoff wait
// observes ctx so cancellation interrupts the loop.
func Retry(cfg RetryConfig, retryable func(error) bool) func(domain.StageFunc) domain.StageFunc {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if retryable == nil {
		retryable = RetryAll
	}

	return func(fn domain.StageFunc) domain.StageFunc {
		return func(ctx context.Context, input interface{}) (interface{}, error) {
			backoff := cfg.BaseBackoff
			var lastErr error

			for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
				out, err := fn(ctx, input)
				if err == nil {
					return out, nil
				}
				lastErr = err

				if !retryable(err) || attempt == cfg.MaxAttempts {
					return nil, lastErr
				}

				timer := time.NewTimer(backoff)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				}
				backoff = time.Duration(float64(backoff) * cfg.Multiplier)
			}
			return nil, lastErr
		}
	}
}
