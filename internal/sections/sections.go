// Package sections serves the console sections whose screens live in the
// remote back office. Each page states what the section covers and which
// permissions the caller holds.
package sections

import (
	"log/slog"
	"net/http"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
)

// Section describes one placeholder page.
type Section struct {
	Path        string
	Heading     string
	Description string
}

// Defaults lists the sections served by this package.
func Defaults() []Section {
	return []Section{
		{Path: nav.PathSales, Heading: "Ventes", Description: "Enregistrement des ventes au comptoir et historique des tickets."},
		{Path: nav.PathStock, Heading: "Stocks", Description: "Niveaux de stock, lots et seuils d'alerte de la pharmacie."},
		{Path: nav.PathInvoices, Heading: "Factures", Description: "Saisie des factures fournisseurs et suivi des règlements."},
		{Path: nav.PathEmployees, Heading: "Employés", Description: "Comptes des employés et réglage de leurs permissions."},
		{Path: nav.PathSettings, Heading: "Paramètres", Description: "Coordonnées et réglages de la pharmacie."},
	}
}

// Handler renders section pages.
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

type page struct {
	Heading     string
	Description string
	Permissions []access.PermissionKey
}

// Page returns the handler of s. The caller guards it with the menu entry
// of s.Path.
func (h *Handler) Page(s Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := h.workspace.Caller(r)
		if !ok {
			view.Redirect(w, r, view.LoginPath)
			return
		}
		data := page{Heading: s.Heading, Description: s.Description}
		if caller.User.IsOwner() {
			data.Permissions = access.AllPermissions()
		} else {
			data.Permissions = h.workspace.Profile(r.Context(), caller).Granted()
		}
		h.pages.Render(w, r, "pages/section.html", data)
	}
}
