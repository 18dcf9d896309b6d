package redis

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
)

// MetricsHook implements redis.Hook to collect metrics on all Redis operations
type MetricsHook struct {
	m *metrics.StoreMetrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(m *metrics.StoreMetrics) *MetricsHook {
	return &MetricsHook{m: m}
}

// DialHook is called when establishing a new Redis connection
func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		h.m.Observe("dial", err, time.Since(start))
		return conn, err
	}
}

// ProcessHook is called for every Redis command execution
func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)

		// A missing key is a normal answer, not a store failure.
		observed := err
		if errors.Is(err, goredis.Nil) {
			observed = nil
		}
		h.m.Observe(cmd.Name(), observed, time.Since(start))
		return err
	}
}

// ProcessPipelineHook is called for pipelined Redis commands
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.m.Observe("pipeline", err, time.Since(start))
		return err
	}
}
