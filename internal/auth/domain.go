package auth

import (
	"context"
	"errors"

	"github.com/esora/officine/internal/pharmaapi"
)

// ErrNotStaff is returned when the account is not a pharmacy staff role.
var ErrNotStaff = errors.New("auth: account is not pharmacy staff")

// Authenticator exchanges credentials for tokens against the remote API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*pharmaapi.LoginResult, error)
}
