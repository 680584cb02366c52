package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/auth"
	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/dashboard"
	"github.com/esora/officine/internal/guard"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/notifications"
	"github.com/esora/officine/internal/observability"
	"github.com/esora/officine/internal/orders"
	"github.com/esora/officine/internal/revenue"
	"github.com/esora/officine/internal/sections"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Pages          *view.Presenter
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *guard.Guard
	Menu           []nav.Entry
	Metrics        *observability.Metrics

	AuthHandler          *auth.Handler
	CountersHandler      *counters.Handler
	DashboardHandler     *dashboard.Handler
	OrdersHandler        *orders.Handler
	RevenueHandler       *revenue.Handler
	NotificationsHandler *notifications.Handler
	SectionsHandler      *sections.Handler
	Sections             []sections.Section
}

// NewRouter constructs the chi.Router of the console.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	landing := params.Config.LandingPath
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, landing, http.StatusSeeOther)
	})

	// The counter stream outlives the page timeout.
	if params.CountersHandler != nil {
		r.Route("/counters", func(r chi.Router) {
			r.Use(CORS(params.Config))
			r.Use(params.Guard.Require(access.Staff()))
			params.CountersHandler.MountRoutes(r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(Timeout(params.Config))
		r.Route("/auth", params.AuthHandler.MountRoutes)

		mount := func(path string, routes func(chi.Router)) {
			r.Route(path, func(r chi.Router) {
				r.Use(params.Guard.Route(params.Menu, path))
				routes(r)
			})
		}
		if params.DashboardHandler != nil {
			mount(nav.PathDashboard, params.DashboardHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			mount(nav.PathOrders, params.OrdersHandler.MountRoutes)
		}
		if params.RevenueHandler != nil {
			mount(nav.PathRevenue, params.RevenueHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			mount(nav.PathNotifications, params.NotificationsHandler.MountRoutes)
		}
		if params.SectionsHandler != nil {
			for _, s := range params.Sections {
				r.With(params.Guard.Route(params.Menu, s.Path)).Get(s.Path, params.SectionsHandler.Page(s))
			}
		}
	})

	if params.Pages != nil {
		r.NotFound(NotFoundPage(params.Pages))
	}
	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
