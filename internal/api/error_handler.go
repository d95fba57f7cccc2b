package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps domain sentinels to HTTP codes. Specific sentinels come before
// the generic ones they wrap so the envelope names the narrowest error.
var statusFor = []struct {
	err  error
	code int
}{
	{domain.ErrMissingField, http.StatusBadRequest},
	{domain.ErrInvalidField, http.StatusBadRequest},
	{domain.ErrDuplicateEmail, http.StatusConflict},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrInstanceNotFound, http.StatusNotFound},
	{domain.ErrTokenNotFound, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrEmailUnconfirmed, http.StatusUnauthorized},
	{domain.ErrAccountDisabled, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrExpiredToken, http.StatusUnauthorized},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Passes remote messaging failures through with the remote status.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		log.Warn().
			Err(err).
			Str("op", ue.Op).
			Int("upstream_status", ue.Status).
			Msg("messaging service call failed")
		return ue.HTTPStatus(), errorResponse{Error: "messaging service error", Detail: ue.Message}
	}

	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return m.code, envelope(err, m.err)
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

// envelope names the sentinel and moves any context wrapped after it
// ("invalid field: email is not a valid address") into detail.
func envelope(err, sentinel error) errorResponse {
	name := sentinel.Error()
	msg := err.Error()
	if i := strings.Index(msg, name+": "); i >= 0 {
		return errorResponse{Error: name, Detail: msg[i+len(name)+2:]}
	}
	return errorResponse{Error: name}
}
