package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
)

func runCommand(hook *CircuitBreakerHook, err error) error {
	ctx := context.Background()
	process := hook.ProcessHook(func(ctx context.Context, cmd goredis.Cmder) error {
		return err
	})
	return process(ctx, goredis.NewStringCmd(ctx, "set", "key", "value"))
}

func TestCircuitBreakerHook_NormalOperation(t *testing.T) {
	hook := NewCircuitBreakerHook(time.Minute, nil)

	for i := 0; i < 10; i++ {
		assert.NoError(t, runCommand(hook, nil))
	}
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_MissingKeyIsNotAFailure(t *testing.T) {
	hook := NewCircuitBreakerHook(time.Minute, nil)

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, runCommand(hook, goredis.Nil), goredis.Nil)
	}
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_TransientFailures(t *testing.T) {
	hook := NewCircuitBreakerHook(time.Minute, nil)

	for i := 0; i < 4; i++ {
		err := runCommand(hook, errors.New("connection refused"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_OpensAndFailsFast(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	hook := NewCircuitBreakerHook(time.Minute, m)

	for i := 0; i < 5; i++ {
		require.Error(t, runCommand(hook, errors.New("connection timeout")))
	}
	assert.Equal(t, circuitbreaker.OpenState, hook.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))

	called := false
	ctx := context.Background()
	process := hook.ProcessHook(func(ctx context.Context, cmd goredis.Cmder) error {
		called = true
		return nil
	})
	err := process(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.False(t, called, "open breaker must not reach redis")
}

func TestCircuitBreakerHook_HalfOpensAfterDelay(t *testing.T) {
	hook := NewCircuitBreakerHook(10*time.Millisecond, nil)

	for i := 0; i < 5; i++ {
		require.Error(t, runCommand(hook, errors.New("down")))
	}
	require.Equal(t, circuitbreaker.OpenState, hook.State())

	require.Eventually(t, func() bool {
		return runCommand(hook, nil) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, 0.0, stateToFloat(circuitbreaker.ClosedState))
	assert.Equal(t, 1.0, stateToFloat(circuitbreaker.HalfOpenState))
	assert.Equal(t, 2.0, stateToFloat(circuitbreaker.OpenState))
}
