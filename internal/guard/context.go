package guard

import (
	"context"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
)

type userKey struct{}

type profileKey struct{}

// WithIdentity stores the resolved user and profile in ctx.
func WithIdentity(ctx context.Context, user *identity.User, profile *access.Profile) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return context.WithValue(ctx, profileKey{}, profile)
}

// UserFrom returns the user admitted by the guard.
func UserFrom(ctx context.Context) *identity.User {
	u, _ := ctx.Value(userKey{}).(*identity.User)
	return u
}

// ProfileFrom returns the employee profile admitted with the user. It is
// nil for owners and for employees whose profile is still loading.
func ProfileFrom(ctx context.Context) *access.Profile {
	p, _ := ctx.Value(profileKey{}).(*access.Profile)
	return p
}
