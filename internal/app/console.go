package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/auth"
	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/dashboard"
	"github.com/esora/officine/internal/guard"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/notifications"
	"github.com/esora/officine/internal/observability"
	"github.com/esora/officine/internal/orders"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/revenue"
	"github.com/esora/officine/internal/sections"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
)

// NewConsole wires every console component over rdb and returns the HTTP
// handler. metrics may be nil.
func NewConsole(cfg *Config, logger *slog.Logger, rdb redis.Cmdable, metrics *observability.Metrics) (http.Handler, error) {
	templates, err := view.NewEngine()
	if err != nil {
		return nil, err
	}

	sessionManager := shared.NewSessionManager(rdb, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	versioned := cache.NewVersioned(rdb, cfg.CacheTTL, logger)
	menu := nav.DefaultMenu()

	client := pharmaapi.NewClient(pharmaapi.Config{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		RetryMax: cfg.APIRetryMax,
	}, logger)
	loader := access.NewProfileLoader(cfg.ProfileTTL, logger, metrics)

	tokens := func(r *http.Request) *identity.Store {
		return shared.SessionFromContext(r.Context()).Identity()
	}
	ws := workspace.New(client, tokens, loader, versioned, menu, logger)
	countersHandler := counters.NewHandler(logger, ws.Counters, cfg.CounterInterval)

	pages := view.NewPresenter(templates, csrfManager, menu, countersHandler.Current, logger)
	g := guard.New(guard.Config{
		LoginPath:   view.LoginPath,
		LandingPath: cfg.LandingPath,
		ProfileWait: cfg.ProfileWait,
		Forbidden:   ForbiddenPage(pages),
	}, loader, client, PendingPage(pages), logger, metrics)

	authHandler := auth.NewHandler(logger, auth.NewService(client.Auth, loader), pages, sessionManager, csrfManager, cfg.LandingPath)
	ordersService := orders.NewService(versioned, shared.NewAuditLogger(rdb), metrics, logger)
	zone := view.DisplayZone()

	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Pages:          pages,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          g,
		Menu:           menu,
		Metrics:        metrics,

		AuthHandler:          authHandler,
		CountersHandler:      countersHandler,
		DashboardHandler:     dashboard.NewHandler(logger, dashboard.NewService(ws, zone, logger), ws, pages),
		OrdersHandler:        orders.NewHandler(logger, ordersService, ws, pages, g, shared.NewIdempotencyStore(rdb, 0)),
		RevenueHandler:       revenue.NewHandler(logger, ws, pages, zone),
		NotificationsHandler: notifications.NewHandler(logger, ws, pages),
		SectionsHandler:      sections.NewHandler(logger, ws, pages),
		Sections:             sections.Defaults(),
	}), nil
}
