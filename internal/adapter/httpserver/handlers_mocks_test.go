package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/ckksgate/internal/domain"
	"github.com/pscheid92/ckksgate/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	encryptFn         func(ctx context.Context, values []float64) (*domain.TransportEnvelope, error)
	encryptAndStoreFn func(ctx context.Context, values []float64, name string) (*domain.TransportEnvelope, *domain.StoredArtifacts, error)
	loadArtifactsFn   func(ctx context.Context, name string) (*domain.ArtifactPair, error)
	publicContextFn   func(ctx context.Context) (*domain.PublishedContext, error)
}

func (m *mockAppService) Encrypt(ctx context.Context, values []float64) (*domain.TransportEnvelope, error) {
	if m.encryptFn != nil {
		return m.encryptFn(ctx, values)
	}
	return testEnvelope(len(values)), nil
}

func (m *mockAppService) EncryptAndStore(ctx context.Context, values []float64, name string) (*domain.TransportEnvelope, *domain.StoredArtifacts, error) {
	if m.encryptAndStoreFn != nil {
		return m.encryptAndStoreFn(ctx, values, name)
	}
	if name == "" {
		name = domain.DefaultArtifactName
	}
	encID, ctxID := domain.ArtifactIDs(name)
	return testEnvelope(len(values)), &domain.StoredArtifacts{Name: name, Files: []string{encID, ctxID}, StoredAt: testTime}, nil
}

func (m *mockAppService) LoadArtifacts(ctx context.Context, name string) (*domain.ArtifactPair, error) {
	if m.loadArtifactsFn != nil {
		return m.loadArtifactsFn(ctx, name)
	}
	return nil, domain.ErrArtifactNotFound
}

func (m *mockAppService) PublicContext(ctx context.Context) (*domain.PublishedContext, error) {
	if m.publicContextFn != nil {
		return m.publicContextFn(ctx)
	}
	return nil, errors.New("not implemented")
}

// --- Test helpers ---

var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testEnvelope(length int) *domain.TransportEnvelope {
	return &domain.TransportEnvelope{
		Encrypted:   "Y2lwaGVydGV4dA==",
		Context:     "Y29udGV4dA==",
		Length:      length,
		Fingerprint: "00112233445566778899aabbccddeeff",
		CreatedAt:   testTime,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Host:               "localhost",
		Port:               "5501",
		CORSAllowedOrigins: []string{"*"},
		EncryptRateLimit:   1000,
		EncryptRateBurst:   1000,
		MaxBodySize:        "1K",
		RequestTimeout:     5 * time.Second,
	}
}

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo:      echo.New(),
		config:    testConfig(),
		app:       app,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

func withMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func doJSON(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
