package app

import (
	"net/http"

	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/view"
)

// PendingPage is served while an employee profile is still loading. The
// browser retries after a second.
func PendingPage(pages *view.Presenter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Refresh", "1")
		td := pages.Data(r, nil)
		td.Title = "Chargement"
		pages.RenderData(w, http.StatusOK, "pages/loading.html", td)
	})
}

// ForbiddenPage answers a denied request to the landing page.
func ForbiddenPage(pages *view.Presenter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		td := pages.Data(r, nil)
		td.Title = "Accès refusé"
		pages.RenderData(w, http.StatusForbidden, "pages/forbidden.html", td)
	})
}

// NotFoundPage renders the error page with 404.
func NotFoundPage(pages *view.Presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Fail(w, r, httpx.ErrNotFound)
	}
}
