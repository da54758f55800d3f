package middleware

import (
	"log/slog"
	"net/http"

	"bazaar/internal/delivery/http/response"
	domainerrors "bazaar/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware is the echo HTTPErrorHandler. It translates domain errors
// into the response envelope and shields callers from internal detail.
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		//nolint:errcheck // Nothing left to do if writing the error response fails.
		response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), errorDetails(appErr))

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message, _ := httpErr.Message.(string)
		if message == "" {
			message = http.StatusText(httpErr.Code)
		}

		//nolint:errcheck
		response.Error(c, httpErr.Code, "HTTP_ERROR", message, nil)

		return
	}

	// Anything unrecognized is a bug or infrastructure failure. Log the
	// real error, return a generic 500.
	m.logger.Error("Unhandled error",
		"error", err.Error(),
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
	)

	//nolint:errcheck
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}

// errorDetails picks structured details for errors that carry more than a
// string. A suspension exposes its deadline so clients can show when access
// resumes.
func errorDetails(appErr domainerrors.AppError) any {
	var suspension *domainerrors.SuspensionError
	if errors.As(appErr, &suspension) {
		if ms := suspension.SuspendedUntil(); ms > 0 {
			return map[string]any{"suspendedUntil": ms}
		}

		return nil
	}

	if details := appErr.Details(); details != "" {
		return details
	}

	return nil
}
