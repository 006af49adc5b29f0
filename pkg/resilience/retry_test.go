package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var gaps []time.Time
	fn := func(ctx context.Context, input interface{}) (interface{}, error) {
		calls++
		gaps = append(gaps, time.Now())
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	wrapped := Retry(RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 20 * time.Millisecond,
		Multiplier:  2,
	}, RetryAll)(fn)

	out, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)

	// Backoff grows: ~20ms then ~40ms between attempts.
	require.Len(t, gaps, 3)
	first := gaps[1].Sub(gaps[0])
	second := gaps[2].Sub(gaps[1])
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.GreaterOrEqual(t, second, 40*time.Millisecond)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("persistent")
	fn := func(ctx context.Context, input interface{}) (interface{}, error) {
		calls++
		return nil, boom
	}

	wrapped := Retry(RetryConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, Multiplier: 2}, RetryAll)(fn)

	_, err := wrapped(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	fatal := errors.New("bad input")
	fn := func(ctx context.Context, input interface{}) (interface{}, error) {
		calls++
		return nil, fatal
	}

	retryable := func(err error) bool { return !errors.Is(err, fatal) }
	wrapped := Retry(RetryConfig{MaxAttempts: 5, BaseBackoff: time.Millisecond, Multiplier: 2}, retryable)(fn)

	_, err := wrapped(context.Background(), nil)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryBackoffObservesContext(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, input interface{}) (interface{}, error) {
		calls++
		return nil, errors.New("transient")
	}

	ctx, cancel := context.WithCancel(context.Background())
	wrapped := Retry(RetryConfig{MaxAttempts: 5, BaseBackoff: time.Minute, Multiplier: 2}, RetryAll)(fn)

	done := make(chan error, 1)
	go func() {
		_, err := wrapped(ctx, nil)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls, "cancel during backoff must not spend another attempt")
	case <-time.After(time.Second):
		t.Fatal("retry did not observe context cancellation during backoff")
	}
}

func TestRetryNoRetryOnSuccess(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, input interface{}) (interface{}, error) {
		calls++
		return input, nil
	}

	wrapped := Retry(RetryConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, Multiplier: 2}, RetryAll)(fn)
	out, err := wrapped(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "in", out)
	assert.Equal(t, 1, calls)
}

func TestFallbackUsesSecondaryOnPrimaryFailure(t *testing.T) {
	primary := func(ctx context.Context, input interface{}) (interface{}, error) {
		return nil, errors.New("primary down")
	}
	secondary := func(ctx context.Context, input interface{}) (interface{}, error) {
		return "from secondary", nil
	}

	out, err := Fallback(primary, secondary)(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "from secondary", out)
}

func TestFallbackSkipsSecondaryOnSuccess(t *testing.T) {
	secondaryCalled := false
	primary := func(ctx context.Context, input interface{}) (interface{}, error) {
		return "from primary", nil
	}
	secondary := func(ctx context.Context, input interface{}) (interface{}, error) {
		secondaryCalled = true
		return "from secondary", nil
	}

	out, err := Fallback(primary, secondary)(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "from primary", out)
	assert.False(t, secondaryCalled)
}

func TestFallbackReportsSecondaryError(t *testing.T) {
	secondaryErr := errors.New("secondary down too")
	primary := func(ctx context.Context, input interface{}) (interface{}, error) {
		return nil, errors.New("primary down")
	}
	secondary := func(ctx context.Context, input interface{}) (interface{}, error) {
		return nil, secondaryErr
	}

	_, err := Fallback(primary, secondary)(context.Background(), nil)
	assert.ErrorIs(t, err, secondaryErr)
}
