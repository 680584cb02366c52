package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
)

// Handler serves the dashboard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	workspace *workspace.Workspace
	pages     *view.Presenter
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, ws *workspace.Workspace, pages *view.Presenter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, workspace: ws, pages: pages}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	sum, err := h.service.Load(r.Context(), caller)
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, "pages/dashboard.html", sum)
}
