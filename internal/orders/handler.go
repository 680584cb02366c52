package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/guard"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workflow"
	"github.com/esora/officine/internal/workspace"
)

const (
	defaultPerPage = 20
	// idempotencyField carries the one-time key of an action form.
	idempotencyField  = "idempotency_key"
	idempotencyModule = "orders"
)

// ProcessRequirement gates the status actions. Viewing only needs the
// Commandes menu entry.
var ProcessRequirement = access.Staff(access.PermProcessOrders)

// Handler serves the order pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	workspace *workspace.Workspace
	pages     *view.Presenter
	guard     *guard.Guard
	submitted *shared.IdempotencyStore
	validator *validator.Validate
	perPage   int
}

// NewHandler constructs a Handler. submitted may be nil, which disables
// duplicate submission detection.
func NewHandler(logger *slog.Logger, service *Service, ws *workspace.Workspace, pages *view.Presenter, g *guard.Guard, submitted *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		workspace: ws,
		pages:     pages,
		guard:     g,
		submitted: submitted,
		validator: validator.New(),
		perPage:   defaultPerPage,
	}
}

// MountRoutes registers the order routes. The caller guards the group with
// the Commandes entry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.detail)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(ProcessRequirement))
		r.Get("/{id}/actions/{action}", h.showAction)
		r.Post("/{id}/actions/{action}", h.submitAction)
	})
}

type listPage struct {
	Orders     []pharmaapi.Order
	Stats      []StatusCount
	Total      int
	Query      string
	Status     workflow.Status
	Statuses   []workflow.Status
	Pagination shared.Pagination
}

type detailPage struct {
	Order   pharmaapi.Order
	Actions []workflow.Transition
}

type actionPage struct {
	Order          pharmaapi.Order
	Transition     workflow.Transition
	Presentation   workflow.Presentation
	Message        string
	Error          string
	IdempotencyKey string
}

type actionForm struct {
	Message string `validate:"max=1000"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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
	all, err := caller.API.Orders.List(ctx, pharmacy.ID, "")
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	SortRecent(all)

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	status, _ := workflow.ParseStatus(q.Get("statut"))
	page, _ := strconv.Atoi(q.Get("page"))

	filtered := Filter(all, query, status)
	pagination := shared.NewPagination(page, h.perPage, len(filtered))
	start, end := pagination.Bounds()

	h.pages.Render(w, r, "pages/orders.html", listPage{
		Orders:     filtered[start:end],
		Stats:      Stats(all),
		Total:      len(all),
		Query:      query,
		Status:     status,
		Statuses:   workflow.Statuses(),
		Pagination: pagination,
	})
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	caller, order, ok := h.load(w, r)
	if !ok {
		return
	}
	data := detailPage{Order: *order}
	if h.workspace.Allows(r.Context(), caller, ProcessRequirement) {
		data.Actions = workflow.Available(order.Status)
	}
	h.pages.Render(w, r, "pages/order_detail.html", data)
}

func (h *Handler) showAction(w http.ResponseWriter, r *http.Request) {
	_, order, ok := h.load(w, r)
	if !ok {
		return
	}
	t, err := workflow.Find(order.Status, workflow.Action(chi.URLParam(r, "action")))
	if err != nil {
		h.unavailable(w, r, order)
		return
	}
	presentation := t.Presentation()
	h.renderAction(w, r, http.StatusOK, actionPage{
		Order:          *order,
		Transition:     t,
		Presentation:   presentation,
		Message:        presentation.DefaultMessage,
		IdempotencyKey: uuid.NewString(),
	}, nil)
}

func (h *Handler) submitAction(w http.ResponseWriter, r *http.Request) {
	caller, order, ok := h.load(w, r)
	if !ok {
		return
	}
	key := r.PostFormValue(idempotencyField)
	if h.duplicate(r, key) {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: shared.FlashInfo, Message: "Cette action a déjà été envoyée."})
		}
		http.Redirect(w, r, orderPath(order.ID), http.StatusSeeOther)
		return
	}
	applied := false
	defer func() {
		if !applied {
			h.release(r, key)
		}
	}()

	action := workflow.Action(chi.URLParam(r, "action"))
	t, err := workflow.Find(order.Status, action)
	if err != nil {
		h.unavailable(w, r, order)
		return
	}
	form := actionForm{Message: r.PostFormValue("message")}
	page := actionPage{Order: *order, Transition: t, Presentation: t.Presentation(), Message: form.Message, IdempotencyKey: key}
	if err := h.validator.Struct(form); err != nil {
		page.Error = "Le message ne peut pas dépasser 1000 caractères."
		h.renderAction(w, r, http.StatusUnprocessableEntity, page, nil)
		return
	}

	updated, err := h.service.Apply(r.Context(), caller, *order, action, form.Message)
	switch {
	case err == nil:
		applied = true
		sess := shared.SessionFromContext(r.Context())
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{
				Kind:    shared.FlashSuccess,
				Message: fmt.Sprintf("Commande %s : %s.", updated.Number, strings.ToLower(updated.Status.Label())),
			})
		}
		http.Redirect(w, r, orderPath(order.ID), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrMessageRequired):
		page.Error = "Un message au patient est obligatoire pour cette action."
		h.renderAction(w, r, http.StatusUnprocessableEntity, page, nil)
	case errors.Is(err, workflow.ErrNoTransition):
		h.unavailable(w, r, order)
	case errors.Is(err, httpx.ErrUnauthorized):
		view.Redirect(w, r, view.LoginPath)
	case errors.Is(err, httpx.ErrValidation):
		h.renderAction(w, r, http.StatusUnprocessableEntity, page, &shared.FlashMessage{
			Kind:    shared.FlashError,
			Message: "Le serveur a refusé ce changement de statut.",
		})
	default:
		h.renderAction(w, r, http.StatusBadGateway, page, &shared.FlashMessage{
			Kind:    shared.FlashError,
			Message: "La mise à jour a échoué. Votre saisie est conservée, réessayez.",
		})
	}
}

// load resolves the caller and the order of the {id} parameter. Orders of
// another pharmacy are reported as not found.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*workspace.Caller, *pharmaapi.Order, bool) {
	ctx := r.Context()
	caller, ok := h.workspace.Caller(r)
	if !ok {
		view.Redirect(w, r, view.LoginPath)
		return nil, nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.pages.Fail(w, r, httpx.ErrNotFound)
		return nil, nil, false
	}
	pharmacy, err := h.workspace.Pharmacy(ctx, caller)
	if err != nil {
		h.pages.Fail(w, r, err)
		return nil, nil, false
	}
	order, err := caller.API.Orders.Get(ctx, id)
	if err != nil {
		h.pages.Fail(w, r, err)
		return nil, nil, false
	}
	if order.PharmacyID != 0 && order.PharmacyID != pharmacy.ID {
		h.pages.Fail(w, r, httpx.ErrNotFound)
		return nil, nil, false
	}
	return caller, order, true
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, order *pharmaapi.Order) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{
			Kind:    shared.FlashError,
			Message: fmt.Sprintf("Cette action n'est pas disponible pour une commande %s.", strings.ToLower(order.Status.Label())),
		})
	}
	http.Redirect(w, r, orderPath(order.ID), http.StatusSeeOther)
}

func (h *Handler) renderAction(w http.ResponseWriter, r *http.Request, status int, page actionPage, flash *shared.FlashMessage) {
	td := h.pages.Data(r, page)
	if flash != nil {
		td.Flash = flash
	}
	td.Title = page.Presentation.Title
	h.pages.RenderData(w, status, "pages/order_action.html", td)
}

// duplicate claims key and reports whether it was claimed before. Forms
// without a key and store failures are never treated as duplicates.
func (h *Handler) duplicate(r *http.Request, key string) bool {
	if h.submitted == nil || key == "" {
		return false
	}
	err := h.submitted.CheckAndInsert(r.Context(), key, idempotencyModule)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return true
	}
	if err != nil {
		h.logger.Warn("idempotency claim", slog.Any("error", err))
	}
	return false
}

func (h *Handler) release(r *http.Request, key string) {
	if h.submitted == nil || key == "" {
		return
	}
	if err := h.submitted.Delete(context.WithoutCancel(r.Context()), key, idempotencyModule); err != nil {
		h.logger.Warn("idempotency release", slog.Any("error", err))
	}
}

func orderPath(id int64) string {
	return nav.PathOrders + "/" + strconv.FormatInt(id, 10)
}
