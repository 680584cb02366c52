// Package notifications serves the notification inbox.
package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
)

// Handler serves the inbox.
type Handler struct {
	logger    *slog.Logger
	workspace *workspace.Workspace
	pages     *view.Presenter
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, ws *workspace.Workspace, pages *view.Presenter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, workspace: ws, pages: pages}
}

// MountRoutes registers the inbox routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/marquer-tout-lu", h.markAll)
	r.Post("/{id}/marquer-lu", h.markOne)
}

type inbox struct {
	Items  []pharmaapi.Notification
	Unread int
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	items, err := caller.API.Notifications.List(r.Context())
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	data := inbox{Items: items}
	for _, n := range items {
		if !n.Read {
			data.Unread++
		}
	}
	h.pages.Render(w, r, "pages/notifications.html", data)
}

func (h *Handler) markOne(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.pages.Fail(w, r, httpx.ErrNotFound)
		return
	}
	if err := caller.API.Notifications.MarkRead(r.Context(), id); err != nil {
		h.failed(w, r, err)
		return
	}
	h.done(w, r, "Notification marquée comme lue.")
}

func (h *Handler) markAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	if err := caller.API.Notifications.MarkAllRead(r.Context()); err != nil {
		h.failed(w, r, err)
		return
	}
	h.done(w, r, "Toutes les notifications sont marquées comme lues.")
}

func (h *Handler) done(w http.ResponseWriter, r *http.Request, msg string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: msg})
	}
	view.Redirect(w, r, nav.PathNotifications)
}

// failed sends the user back to the inbox with an error flash. Expired
// sessions still go to the login page.
func (h *Handler) failed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, httpx.ErrUnauthorized) {
		view.Redirect(w, r, view.LoginPath)
		return
	}
	h.logger.Warn("notification update failed", slog.Any("error", err))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashError, Message: "La notification n'a pas pu être mise à jour."})
	}
	view.Redirect(w, r, nav.PathNotifications)
}
