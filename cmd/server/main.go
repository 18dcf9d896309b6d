package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/ckksgate/internal/adapter/filestore"
	"github.com/pscheid92/ckksgate/internal/adapter/httpserver"
	"github.com/pscheid92/ckksgate/internal/adapter/keystore"
	"github.com/pscheid92/ckksgate/internal/adapter/lattigo"
	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
	"github.com/pscheid92/ckksgate/internal/adapter/redis"
	"github.com/pscheid92/ckksgate/internal/app"
	"github.com/pscheid92/ckksgate/internal/codec"
	"github.com/pscheid92/ckksgate/internal/crypto"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/keyring"
	"github.com/pscheid92/ckksgate/internal/platform/config"
	"github.com/pscheid92/ckksgate/internal/platform/logging"
	"github.com/pscheid92/ckksgate/internal/platform/version"
)

const (
	startupTimeout      = 2 * time.Minute
	shutdownTimeout     = 10 * time.Second
	circuitBreakerDelay = 30 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func schemeParameters(cfg *config.Config) domain.SchemeParameters {
	return domain.SchemeParameters{
		LogN:            cfg.LogN,
		LogQ:            cfg.LogQ,
		LogP:            cfg.LogP,
		LogDefaultScale: cfg.LogScale,
		Rotations:       cfg.Rotations,
	}
}

func setupSealer(cfg *config.Config) crypto.Sealer {
	if cfg.KeyEncryptionKey == "" {
		if cfg.KeyDir != "" {
			slog.Warn("KEY_ENCRYPTION_KEY not set, key store is written unsealed", "key_dir", cfg.KeyDir)
		}
		return crypto.NoopSealer{}
	}
	sealer, err := crypto.NewXChaChaSealer(cfg.KeyEncryptionKey)
	if err != nil {
		slog.Error("Failed to create key store sealer", "error", err)
		os.Exit(1)
	}
	return sealer
}

func setupProvider(ctx context.Context, cfg *config.Config, library domain.CryptoLibrary, encMetrics *metrics.EncryptionMetrics, clock clockwork.Clock) *keyring.Provider {
	providerCfg := keyring.Config{
		Mode:             cfg.ContextMode,
		Params:           schemeParameters(cfg),
		OnContextCreated: encMetrics.ObserveContextCreated,
	}
	// Leave Store nil rather than a typed-nil interface when no KEY_DIR is set.
	if cfg.KeyDir != "" {
		providerCfg.Store = keystore.New(cfg.KeyDir, setupSealer(cfg))
	}

	provider, err := keyring.New(ctx, library, providerCfg, clock)
	if err != nil {
		slog.Error("Failed to initialize crypto context", "error", err)
		os.Exit(1)
	}
	return provider
}

func setupArtifactStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.ArtifactStore, func()) {
	if cfg.StoreBackend == config.StoreBackendRedis {
		storeMetrics := metrics.NewStoreMetrics(reg)
		client, err := redis.NewClient(ctx, cfg.RedisURL,
			redis.NewMetricsHook(storeMetrics),
			redis.NewCircuitBreakerHook(circuitBreakerDelay, storeMetrics),
		)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		return redis.NewArtifactStore(client, cfg.ArtifactTTL), func() { _ = client.Close() }
	}

	store, err := filestore.New(cfg.StoreDir)
	if err != nil {
		slog.Error("Failed to open artifact directory", "dir", cfg.StoreDir, "error", err)
		os.Exit(1)
	}
	return store, func() {}
}

func runGracefulShutdown(srv *httpserver.Server, provider *keyring.Provider) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if err := provider.Close(); err != nil {
			slog.Error("Failed to close context provider", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "address", cfg.Address(), "version", info.Version, "crypto_library", info.CryptoLibrary)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	reg := metrics.NewRegistry()
	encMetrics := metrics.NewEncryptionMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	library := lattigo.New(cfg.EncryptConcurrency)
	provider := setupProvider(startupCtx, cfg, library, encMetrics, clock)

	store, closeStore := setupArtifactStore(startupCtx, cfg, reg)
	defer closeStore()

	appSvc := app.NewService(provider, library, codec.Standard, store, encMetrics, clock)

	healthChecks := []httpserver.HealthCheck{
		{Name: "crypto_context", Check: appSvc.CheckProvider},
		{Name: "artifact_store", Check: appSvc.CheckStore},
	}

	srv, err := httpserver.NewServer(cfg, appSvc, httpMetrics, metrics.Handler(reg), healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, provider)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
