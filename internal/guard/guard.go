// Package guard gates console routes on identity and permissions.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/shared"
)

// Outcomes reported to the Observer.
const (
	OutcomeAllow         = "allow"
	OutcomeRedirectLogin = "redirect_login"
	OutcomeRedirectHome  = "redirect_landing"
	OutcomeForbidden     = "forbidden"
	OutcomePending       = "pending"
)

// ProfileSource fetches the employee profile with the given tokens.
type ProfileSource interface {
	FetchProfile(ctx context.Context, tokens *identity.Store) (*access.Profile, error)
}

// Observer receives guard outcomes.
type Observer interface {
	ObserveGuard(outcome string)
}

// Config tunes the guard.
type Config struct {
	LoginPath   string
	LandingPath string
	// ProfileWait bounds how long a request waits for a profile still
	// loading before the placeholder page is served.
	ProfileWait time.Duration
	// Forbidden renders the 403 answer for a denied landing route. Nil
	// uses http.Error.
	Forbidden http.Handler
}

// Guard is a chi middleware factory enforcing access requirements.
type Guard struct {
	cfg      Config
	loader   *access.ProfileLoader
	source   ProfileSource
	pending  http.Handler
	logger   *slog.Logger
	observer Observer
}

// New constructs a Guard. pending renders the loading placeholder; nil
// uses a minimal built-in page.
func New(cfg Config, loader *access.ProfileLoader, source ProfileSource, pending http.Handler, logger *slog.Logger, observer Observer) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = nav.PathDashboard
	}
	if cfg.ProfileWait <= 0 {
		cfg.ProfileWait = 2 * time.Second
	}
	if pending == nil {
		pending = http.HandlerFunc(defaultPending)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{cfg: cfg, loader: loader, source: source, pending: pending, logger: logger, observer: observer}
}

// Route returns the middleware guarding path with the requirement declared
// by the menu descriptor. Paths missing from menu are denied.
func (g *Guard) Route(menu []nav.Entry, path string) func(http.Handler) http.Handler {
	entry, ok := nav.Lookup(menu, path)
	if !ok {
		g.logger.Warn("guarded route without menu entry", slog.String("path", path))
		return g.Require(access.Requirement{})
	}
	return g.Require(entry.Access)
}

// Require admits requests whose user satisfies req.
//
// Without a signed-in user the request is sent to the login page. While an
// employee profile is loading the request waits up to ProfileWait, then
// gets the placeholder page and the fetch carries on in the background.
// A denied request is sent to the landing page without a message, or gets
// 403 when it already targets the landing page.
func (g *Guard) Require(req access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := shared.SessionFromContext(r.Context()).Identity()
			user := store.CurrentUser()
			if user == nil || !store.IsAuthenticated() {
				g.observe(OutcomeRedirectLogin)
				g.redirect(w, r, g.loginURL(r))
				return
			}

			var profile *access.Profile
			if user.IsEmployee() {
				var ready bool
				profile, ready = g.awaitProfile(r.Context(), user, store)
				if !ready && access.Resolve(req, user, nil) == access.Pending {
					g.observe(OutcomePending)
					g.pending.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user, nil)))
					return
				}
			}

			switch access.Resolve(req, user, profile) {
			case access.Allow:
				g.observe(OutcomeAllow)
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user, profile)))
			default:
				if r.URL.Path == g.cfg.LandingPath {
					g.observe(OutcomeForbidden)
					if g.cfg.Forbidden != nil {
						g.cfg.Forbidden.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user, profile)))
						return
					}
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				g.observe(OutcomeRedirectHome)
				g.redirect(w, r, g.cfg.LandingPath)
			}
		})
	}
}

// awaitProfile returns the employee profile, waiting up to ProfileWait for
// a fetch in progress. ready is false when the wait elapsed.
func (g *Guard) awaitProfile(ctx context.Context, user *identity.User, store *identity.Store) (*access.Profile, bool) {
	if p, ok := g.loader.Peek(user.ID); ok {
		return p, true
	}
	tokens := store.Detached()
	ch := g.loader.Start(ctx, user.ID, func(ctx context.Context) (*access.Profile, error) {
		if g.source == nil {
			return nil, fmt.Errorf("guard: no profile source")
		}
		return g.source.FetchProfile(ctx, tokens)
	})
	timer := time.NewTimer(g.cfg.ProfileWait)
	defer timer.Stop()
	select {
	case p := <-ch:
		return p, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (g *Guard) loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path == g.cfg.LandingPath {
		return g.cfg.LoginPath
	}
	return g.cfg.LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

func (g *Guard) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Guard) observe(outcome string) {
	if g.observer != nil {
		g.observer.ObserveGuard(outcome)
	}
}

func defaultPending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", "1")
	_, _ = fmt.Fprint(w, `<!doctype html><html lang="fr"><head><meta charset="utf-8"><title>Chargement</title></head><body><p>Chargement de vos permissions...</p></body></html>`)
}
