// Package workspace resolves what the signed-in staff member works on: the
// API session bound to their tokens, their permission profile and their
// pharmacy.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/guard"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/workflow"
)

// ErrNoPharmacy is returned when the caller is attached to no pharmacy.
var ErrNoPharmacy = fmt.Errorf("workspace: no pharmacy for this account: %w", httpx.ErrNotFound)

// TokenFunc returns the identity store of the caller of r.
type TokenFunc func(r *http.Request) *identity.Store

// Workspace builds Callers for requests.
type Workspace struct {
	client *pharmaapi.Client
	tokens TokenFunc
	loader *access.ProfileLoader
	cache  *cache.Versioned
	menu   []nav.Entry
	logger *slog.Logger
}

// New constructs a Workspace. cache may be nil.
func New(client *pharmaapi.Client, tokens TokenFunc, loader *access.ProfileLoader, c *cache.Versioned, menu []nav.Entry, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{client: client, tokens: tokens, loader: loader, cache: c, menu: menu, logger: logger}
}

// Caller is the signed-in staff member of one request.
type Caller struct {
	User    *identity.User
	API     *pharmaapi.Session
	profile *access.Profile
	tokens  *identity.Store
}

// Caller returns the caller of r, or false when r is not signed in.
func (w *Workspace) Caller(r *http.Request) (*Caller, bool) {
	store := w.tokens(r)
	if !store.IsAuthenticated() {
		return nil, false
	}
	user := guard.UserFrom(r.Context())
	if user == nil {
		user = store.CurrentUser()
	}
	if user == nil {
		return nil, false
	}
	return &Caller{
		User:    user,
		API:     w.client.Bind(store),
		profile: guard.ProfileFrom(r.Context()),
		tokens:  store,
	}, true
}

// Profile returns the employee profile of c, loading it on first need.
// Owners have none.
func (w *Workspace) Profile(ctx context.Context, c *Caller) *access.Profile {
	if c.profile != nil || !c.User.IsEmployee() {
		return c.profile
	}
	detached := w.client.Bind(c.tokens.Detached())
	c.profile = w.loader.Load(ctx, c.User.ID, detached.Employees.MyProfile)
	return c.profile
}

// Can reports whether c may use the route guarded by path.
func (w *Workspace) Can(ctx context.Context, c *Caller, path string) bool {
	entry, ok := nav.Lookup(w.menu, path)
	if !ok {
		return false
	}
	return w.Allows(ctx, c, entry.Access)
}

// Allows reports whether c satisfies req.
func (w *Workspace) Allows(ctx context.Context, c *Caller, req access.Requirement) bool {
	if !access.NeedsProfile(req, c.User) {
		return access.CanAccess(req, c.User, nil)
	}
	return access.CanAccess(req, c.User, w.Profile(ctx, c))
}

// Pharmacy returns the pharmacy of c. Lookups are cached per user.
func (w *Workspace) Pharmacy(ctx context.Context, c *Caller) (*pharmaapi.Pharmacy, error) {
	profile := w.Profile(ctx, c)
	var out pharmaapi.Pharmacy
	err := w.cache.FetchJSON(ctx, cache.UserScope(c.User.ID), &out, func(ctx context.Context) (any, error) {
		return c.API.Pharmacies.Mine(ctx, c.User, profile)
	}, "pharmacy")
	if errors.Is(err, pharmaapi.ErrNotFound) || (err == nil && out.ID == 0) {
		return nil, ErrNoPharmacy
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cache exposes the shared cache so pages can store derived reports.
func (w *Workspace) Cache() *cache.Versioned {
	return w.cache
}

// Counters resolves the counter source of the caller of r. It matches
// counters.SourceResolver.
func (w *Workspace) Counters(r *http.Request) (counters.Source, bool) {
	c, ok := w.Caller(r)
	if !ok {
		return nil, false
	}
	return counters.SourceFunc(func(ctx context.Context, kind counters.Kind) (int, error) {
		switch kind {
		case counters.PendingOrders:
			if !w.Can(ctx, c, nav.PathOrders) {
				return 0, nil
			}
			pharmacy, err := w.Pharmacy(ctx, c)
			if errors.Is(err, ErrNoPharmacy) {
				return 0, nil
			}
			if err != nil {
				return 0, err
			}
			orders, err := c.API.Orders.List(ctx, pharmacy.ID, workflow.StatusPending)
			if err != nil {
				return 0, err
			}
			return len(orders), nil
		case counters.UnreadNotifications:
			return c.API.Notifications.UnreadCount(ctx)
		default:
			return 0, counters.ErrUnsupported
		}
	}), true
}
