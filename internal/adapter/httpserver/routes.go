package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/ckksgate/internal/platform/correlation"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestIDMiddleware())
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware(s.httpMetrics))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  s.config.CORSAllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, correlation.HeaderName},
		ExposeHeaders: []string{correlation.HeaderName},
	}))
	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))
	if s.config.RequestTimeout > 0 {
		s.echo.Use(middleware.ContextTimeout(s.config.RequestTimeout))
	}

	s.echo.GET("/", s.handleRoot)

	s.registerHealthRoutes()
	s.registerEncryptionRoutes()

	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) registerEncryptionRoutes() {
	limiter := newRateLimiter(s.config.EncryptRateLimit, s.config.EncryptRateBurst)

	s.echo.POST("/encrypt", s.handleEncrypt, limiter)
	s.echo.POST("/encrypt-and-store", s.handleEncryptAndStore, limiter)
	s.echo.GET("/context", s.handleContext)
	s.echo.GET("/artifacts/:name", s.handleArtifacts)
}

// An incoming X-Request-Id is kept so callers can correlate across services.
func (s *Server) setupRequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    correlation.NewID,
		TargetHeader: correlation.HeaderName,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
