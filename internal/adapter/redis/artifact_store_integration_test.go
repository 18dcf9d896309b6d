package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
	"github.com/pscheid92/ckksgate/internal/domain"
)

func TestArtifactStore_PutGet(t *testing.T) {
	client := setupTestClient(t)
	store := NewArtifactStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "last_encrypted.b64", []byte("AAAA")))
	require.NoError(t, store.Put(ctx, "last_encrypted.b64", []byte("BBBB")))

	data, err := store.Get(ctx, "last_encrypted.b64")
	require.NoError(t, err)
	assert.Equal(t, []byte("BBBB"), data)

	ttl, err := client.TTL(ctx, artifactKey("last_encrypted.b64")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "no expiry by default")
}

func TestArtifactStore_TTL(t *testing.T) {
	client := setupTestClient(t)
	store := NewArtifactStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run_context.b64", []byte("ctx")))

	ttl, err := client.TTL(ctx, artifactKey("run_context.b64")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestArtifactStore_NotFound(t *testing.T) {
	client := setupTestClient(t)
	store := NewArtifactStore(client, 0)

	_, err := store.Get(context.Background(), "missing_encrypted.b64")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestArtifactStore_WithHooks(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	client := setupTestClient(t, NewMetricsHook(m), NewCircuitBreakerHook(time.Second, m))
	store := NewArtifactStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a_encrypted.b64", []byte("x")))
	_, err := store.Get(ctx, "a_encrypted.b64")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("set", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get", "success")))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url")
	assert.ErrorContains(t, err, "failed to parse redis URL")
}
