package pharmaapi

import (
	"errors"
	"fmt"

	"github.com/esora/officine/internal/platform/httpx"
)

var (
	// ErrUnauthenticated means the session has no usable token; the caller
	// must sign in again.
	ErrUnauthenticated = fmt.Errorf("pharmaapi: session expired: %w", httpx.ErrUnauthorized)
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = fmt.Errorf("pharmaapi: %w", httpx.ErrNotFound)
	// ErrForbidden is returned for 403 responses.
	ErrForbidden = fmt.Errorf("pharmaapi: %w", httpx.ErrForbidden)
	// ErrInvalidCredentials is returned when login is refused.
	ErrInvalidCredentials = errors.New("pharmaapi: invalid credentials")
	// ErrUnavailable wraps transport failures once retries are exhausted.
	ErrUnavailable = errors.New("pharmaapi: service unavailable")
)

// StatusError carries an unexpected HTTP status from the remote API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pharmaapi: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Unwrap maps validation failures onto httpx.ErrValidation.
func (e *StatusError) Unwrap() error {
	if e.Code == 400 {
		return httpx.ErrValidation
	}
	return nil
}
