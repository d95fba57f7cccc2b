package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Validation.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
)

// Identity and credentials.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrInstanceNotFound   = fmt.Errorf("instance %w", ErrNotFound)
	ErrTokenNotFound      = fmt.Errorf("token %w", ErrNotFound)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailUnconfirmed   = errors.New("email not confirmed")
	ErrAccountDisabled    = errors.New("account disabled")
)

// Session tokens and access control.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrForbidden       = errors.New("access forbidden")
	ErrSelfDeletion    = fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
)

// MissingField reports the named request fields as absent.
func MissingField(fields ...string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(fields, ", "))
}

// UpstreamError is a failed call to the remote messaging service. Status is the
// remote HTTP status, or zero when the request never got a response.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: upstream unreachable: %s", e.Op, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus is the status reported to the caller: the remote status when it
// signalled a client or server error, 502 otherwise.
func (e *UpstreamError) HTTPStatus() int {
	if e.Status >= http.StatusBadRequest {
		return e.Status
	}
	return http.StatusBadGateway
}
