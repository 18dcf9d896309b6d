package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pscheid92/ckksgate/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Millisecond,
}

func alwaysStop(error) retry.Action { return retry.Stop }

func TestDo_SuccessFirstAttempt(t *testing.T) {
	val, err := retry.Do(context.Background(), fastPolicy, retry.AlwaysRetry, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, val)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, retry.AlwaysRetry, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("invalid redis url")
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, alwaysStop, func(context.Context) error {
		calls++
		return permanent
	})

	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustedRetries(t *testing.T) {
	underlying := errors.New("transient")
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, retry.AlwaysRetry, func(context.Context) error {
		calls++
		return underlying
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, fastPolicy.MaxAttempts, calls)
}

func TestDo_BackoffDoublesUpToMax(t *testing.T) {
	var observed []time.Duration
	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     3 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			observed = append(observed, backoff)
		},
	}

	_ = retry.DoVoid(context.Background(), p, retry.AlwaysRetry, func(context.Context) error {
		return errors.New("transient")
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}, observed)
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Second,
	}

	calls := 0
	err := retry.DoVoid(ctx, p, retry.AlwaysRetry, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_RejectsZeroAttempts(t *testing.T) {
	_, err := retry.Do(context.Background(), retry.Policy{}, retry.AlwaysRetry, func(context.Context) (int, error) {
		return 0, nil
	})
	require.Error(t, err)
}
