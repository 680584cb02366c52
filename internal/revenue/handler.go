package revenue

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workflow"
	"github.com/esora/officine/internal/workspace"
)

// Handler serves the revenue page.
type Handler struct {
	logger    *slog.Logger
	workspace *workspace.Workspace
	pages     *view.Presenter
	loc       *time.Location
	now       func() time.Time
}

// NewHandler constructs a Handler. Periods are cut in loc.
func NewHandler(logger *slog.Logger, ws *workspace.Workspace, pages *view.Presenter, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, workspace: ws, pages: pages, loc: loc, now: time.Now}
}

// MountRoutes registers the revenue route. The caller guards it owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

type page struct {
	Pharmacy *pharmaapi.Pharmacy
	Report
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	pharmacy, err := h.workspace.Pharmacy(ctx, caller)
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	rep, err := h.Load(ctx, caller, pharmacy.ID)
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, "pages/revenue.html", page{Pharmacy: pharmacy, Report: rep})
}

// Load returns the report of pharmacyID. Reports are cached per pharmacy
// and day until an order transition bumps the pharmacy scope.
func (h *Handler) Load(ctx context.Context, caller *workspace.Caller, pharmacyID int64) (Report, error) {
	now := h.now()
	var rep Report
	err := h.workspace.Cache().FetchJSON(ctx, cache.PharmacyScope(pharmacyID), &rep, func(ctx context.Context) (any, error) {
		picked, err := caller.API.Orders.List(ctx, pharmacyID, workflow.StatusPickedUp)
		if err != nil {
			return nil, err
		}
		return Compute(picked, now, h.loc), nil
	}, "revenue", now.In(h.location()).Format("2006-01-02"))
	return rep, err
}

func (h *Handler) location() *time.Location {
	if h.loc == nil {
		return time.UTC
	}
	return h.loc
}
