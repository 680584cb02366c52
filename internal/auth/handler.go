package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	pages          *view.Presenter
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	landing        string
}

// NewHandler constructs a Handler instance. landing is where a successful
// sign-in goes when no safe next path was requested.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Presenter, sessions *shared.SessionManager, csrf *shared.CSRFManager, landing string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if landing == "" {
		landing = "/dashboard"
	}
	return &Handler{
		logger:         logger,
		service:        service,
		pages:          pages,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		landing:        landing,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Email string
	Next  string
	Error string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess.Identity().IsAuthenticated() {
		http.Redirect(w, r, h.landing, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, loginPageData{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{Email: form.Email, Next: safeNext(r.PostFormValue("next"))}

	if err := h.validator.Struct(form); err != nil {
		data.Error = "Saisissez une adresse email valide et votre mot de passe."
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// A fresh id before the identity is written prevents session fixation.
	h.sessionManager.Renew(sess)
	h.csrfManager.Rotate(sess)

	user, err := h.service.Authenticate(r.Context(), sess.Identity(), form.Email, form.Password)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, pharmaapi.ErrInvalidCredentials):
			data.Error = "Email ou mot de passe incorrect"
		case errors.Is(err, ErrNotStaff):
			data.Error = "Accès réservé aux pharmaciens uniquement"
		default:
			h.logger.Error("login", slog.Any("error", err))
			data.Error = "Erreur de connexion. Veuillez réessayer."
			status = http.StatusServiceUnavailable
		}
		h.render(w, r, status, data)
		return
	}

	h.logger.Info("staff signed in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Bienvenue, " + user.Name})
	target := data.Next
	if target == "" {
		target = h.landing
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.SignOut(sess.Identity())
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	td := h.pages.Data(r, data)
	td.Title = "Connexion"
	h.pages.RenderData(w, status, "pages/login.html", td)
}

// safeNext keeps only local absolute paths so the login form cannot be used
// as an open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") || strings.HasPrefix(next, "/auth/") {
		return ""
	}
	return next
}
