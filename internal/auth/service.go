package auth

import (
	"context"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
)

// Service wraps authentication business rules.
type Service struct {
	api    Authenticator
	loader *access.ProfileLoader
}

// NewService constructs a new Service. loader may be nil.
func NewService(api Authenticator, loader *access.ProfileLoader) *Service {
	return &Service{api: api, loader: loader}
}

// Authenticate signs the credentials in remotely and writes the identity to
// store. Only staff roles are accepted; nothing is written otherwise.
func (s *Service) Authenticate(ctx context.Context, store *identity.Store, email, password string) (*identity.User, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !res.User.Role.IsStaff() {
		return nil, ErrNotStaff
	}
	if err := store.SignIn(res.Access, res.Refresh, res.User); err != nil {
		return nil, err
	}
	user := res.User
	return &user, nil
}

// SignOut clears the identity and drops the memoized profile of its user.
func (s *Service) SignOut(store *identity.Store) {
	if user := store.CurrentUser(); user != nil && s.loader != nil {
		s.loader.Forget(user.ID)
	}
	store.Logout()
}
