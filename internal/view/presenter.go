package view

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/guard"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/shared"
)

// CountsFunc returns the badge counters for the caller of r.
type CountsFunc func(r *http.Request) counters.Snapshot

// Presenter fills the request scoped parts of TemplateData and renders
// pages with the console layout.
type Presenter struct {
	engine *Engine
	csrf   *shared.CSRFManager
	menu   []nav.Entry
	counts CountsFunc
	logger *slog.Logger
}

// NewPresenter wires a Presenter. counts may be nil.
func NewPresenter(engine *Engine, csrf *shared.CSRFManager, menu []nav.Entry, counts CountsFunc, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{engine: engine, csrf: csrf, menu: menu, counts: counts, logger: logger}
}

// Data builds TemplateData for r. The flash message is consumed.
func (p *Presenter) Data(r *http.Request, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	td := TemplateData{
		Title:       nav.Title(p.menu, r.URL.Path),
		CurrentPath: r.URL.Path,
		Flash:       sess.PopFlash(),
		Data:        data,
	}
	if p.csrf != nil && sess != nil {
		if token, err := p.csrf.EnsureToken(ctx, sess); err == nil {
			td.CSRFToken = token
		}
	}
	user := guard.UserFrom(ctx)
	if user == nil {
		return td
	}
	td.User = user
	if p.counts != nil {
		td.Counts = p.counts(r)
	}
	td.Menu = nav.Compose(p.menu, user, guard.ProfileFrom(ctx), td.Counts, r.URL.Path)
	return td
}

// Render writes page name with status 200.
func (p *Presenter) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	p.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus writes page name with status.
func (p *Presenter) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	p.RenderData(w, status, name, p.Data(r, data))
}

// RenderData writes page name from prepared TemplateData.
func (p *Presenter) RenderData(w http.ResponseWriter, status int, name string, td TemplateData) {
	if err := p.engine.RenderStatus(w, status, name, td); err != nil {
		p.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// LoginPath is where expired sessions are sent.
const LoginPath = "/auth/login"

// Fail answers a page request that could not be served because of err.
// An expired session goes back to the login page; it is never shown as an
// in-page error.
func (p *Presenter) Fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrUnauthorized):
		Redirect(w, r, LoginPath)
	case errors.Is(err, httpx.ErrNotFound):
		p.RenderStatus(w, r, http.StatusNotFound, "pages/error.html", "Cette ressource est introuvable.")
	case errors.Is(err, httpx.ErrForbidden):
		p.RenderStatus(w, r, http.StatusForbidden, "pages/error.html", "Vous n'avez pas accès à cette ressource.")
	default:
		p.logger.Error("page failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		p.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", nil)
	}
}

// Redirect sends a 303, or an HX-Redirect header to partial requests.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
