package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/config"
)

const readHeaderTimeout = 10 * time.Second

type appService interface {
	Encrypt(ctx context.Context, values []float64) (*domain.TransportEnvelope, error)
	EncryptAndStore(ctx context.Context, values []float64, name string) (*domain.TransportEnvelope, *domain.StoredArtifacts, error)
	LoadArtifacts(ctx context.Context, name string) (*domain.ArtifactPair, error)
	PublicContext(ctx context.Context) (*domain.PublishedContext, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer wires routes and middleware. httpMetrics and metricsHandler may be nil.
func NewServer(cfg *config.Config, app appService, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, healthChecks []HealthCheck) (*Server, error) {
	if _, err := bytes.Parse(cfg.MaxBodySize); err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_SIZE %q: %w", cfg.MaxBodySize, err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = readHeaderTimeout

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            app,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "address", s.config.Address())
	if err := s.echo.Start(s.config.Address()); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for in-process tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
