package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/ckksgate/internal/adapter/metrics"
	"github.com/pscheid92/ckksgate/internal/domain"
	apperrors "github.com/pscheid92/ckksgate/internal/platform/errors"
)

// ErrorHandlingMiddleware turns handler errors into structured JSON responses.
// m may be nil.
func ErrorHandlingMiddleware(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			if c.Response().Committed {
				return err
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				structuredErr := WrapHTTPError(httpErr)
				m.ObserveError(string(structuredErr.Type))
				return writeError(c, httpErr.Code, structuredErr)
			}

			structuredErr := toStructuredError(err)
			m.ObserveError(string(structuredErr.Type))
			logError(c, structuredErr)
			return writeError(c, structuredErr.HTTPStatus(), structuredErr)
		}
	}
}

func writeError(c echo.Context, status int, err *apperrors.Error) error {
	if err := c.JSON(status, err.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// toStructuredError maps domain failures onto the public error taxonomy.
// Causes stay in the logs and never reach the response body.
func toStructuredError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	var capacityErr *domain.CapacityExceededError
	var valueErr *domain.ValueError

	switch {
	case errors.As(err, &capacityErr):
		return apperrors.CapacityError("too many values for one ciphertext").
			WithField("length", capacityErr.Length).
			WithField("capacity", capacityErr.Capacity)
	case errors.Is(err, domain.ErrCapacityExceeded):
		return apperrors.CapacityError("too many values for one ciphertext")
	case errors.As(err, &valueErr):
		return apperrors.ValidationError(valueErr.Err.Error()).WithField("index", valueErr.Index)
	case errors.Is(err, domain.ErrEmptyVector):
		return apperrors.ValidationError(domain.ErrEmptyVector.Error())
	case errors.Is(err, domain.ErrInvalidArtifactName):
		return apperrors.ValidationError("artifact name must match [A-Za-z0-9_-]{1,64}")
	case errors.Is(err, domain.ErrMalformedInput):
		return apperrors.ValidationError("malformed input")
	case errors.Is(err, domain.ErrArtifactNotFound):
		return apperrors.NotFoundError("artifact not found")
	case errors.Is(err, domain.ErrStorage):
		return apperrors.ExternalError("artifact store unavailable", err)
	case errors.Is(err, domain.ErrSecretMaterialInExport):
		return apperrors.InternalError("context export rejected", err)
	case errors.Is(err, domain.ErrSerialization):
		return apperrors.InternalError("serialization failed", err)
	case errors.Is(err, domain.ErrConfiguration):
		return apperrors.InternalError("crypto context is misconfigured", err)
	case errors.Is(err, domain.ErrProviderClosed):
		return apperrors.InternalError("service is shutting down", err)
	default:
		return apperrors.AsStructuredError(err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeCapacity:
		slog.InfoContext(ctx, "Capacity exceeded", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// WrapHTTPError converts echo's HTTPError (body limit, routing, timeouts) to a structured error.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}

	var errType apperrors.ErrorType
	switch {
	case httpErr.Code == http.StatusRequestEntityTooLarge:
		errType = apperrors.TypeCapacity
	case httpErr.Code == http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case httpErr.Code == http.StatusBadGateway, httpErr.Code == http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	case httpErr.Code >= 400 && httpErr.Code < 500:
		errType = apperrors.TypeValidation
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
