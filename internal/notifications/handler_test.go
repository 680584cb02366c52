package notifications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/notifications"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/pharmaapi/pharmatest"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
	_ "github.com/esora/officine/testing"
)

var owner = identity.User{ID: 1, Name: "Fatou Sow", Role: identity.RoleOwner}

type env struct {
	api    *pharmatest.Server
	sess   *shared.Session
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	api := pharmatest.New(t)
	base := time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)
	order := int64(12)
	api.AddNotification(pharmaapi.Notification{ID: 1, Title: "Stock bas", Message: "Paracétamol", CreatedAt: base})
	api.AddNotification(pharmaapi.Notification{ID: 2, Title: "Nouvelle commande", Message: "CMD-0012", CreatedAt: base.Add(time.Hour), OrderID: &order})
	api.AddNotification(pharmaapi.Notification{ID: 3, Title: "Lue", Read: true, CreatedAt: base.Add(-time.Hour)})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(rdb, "test_session", time.Hour, false)
	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.Identity().SignIn("tok-owner", "refresh-tok-owner", owner))

	menu := nav.DefaultMenu()
	tokens := func(r *http.Request) *identity.Store { return shared.SessionFromContext(r.Context()).Identity() }
	ws := workspace.New(api.Client(), tokens, access.NewProfileLoader(time.Minute, nil, nil),
		cache.NewVersioned(rdb, time.Minute, nil), menu, nil)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := view.NewPresenter(engine, shared.NewCSRFManager("csrfsecret"), menu, nil, nil)

	r := chi.NewRouter()
	r.Route(nav.PathNotifications, notifications.NewHandler(nil, ws, pages).MountRoutes)
	return &env{api: api, sess: sess, router: r}
}

func (e *env) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), e.sess))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestInboxListsNewestFirst(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "2 non lue(s)")
	assert.Contains(t, body, `href="/commandes/12"`)
	assert.Less(t, strings.Index(body, "Nouvelle commande"), strings.Index(body, "Stock bas"))
	assert.Contains(t, body, "/notifications/1/marquer-lu")
	assert.NotContains(t, body, "/notifications/3/marquer-lu")
}

func TestMarkOne(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/notifications/1/marquer-lu")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, nav.PathNotifications, rec.Header().Get("Location"))

	for _, n := range e.api.Notifications() {
		if n.ID == 1 {
			assert.True(t, n.Read)
		}
		if n.ID == 2 {
			assert.False(t, n.Read)
		}
	}
	flash := e.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
}

func TestMarkAll(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/notifications/marquer-tout-lu")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	for _, n := range e.api.Notifications() {
		assert.True(t, n.Read, n.ID)
	}
}

func TestMarkUnknownShowsError(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/notifications/99/marquer-lu")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flash := e.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, shared.FlashError, flash.Kind)

	rec = e.do(http.MethodPost, "/notifications/abc/marquer-lu")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	e := newEnv(t)
	e.api.Revoke("tok-owner")
	e.api.Revoke("tok-owner-renewed")

	rec := e.do(http.MethodPost, "/notifications/marquer-tout-lu")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, view.LoginPath, rec.Header().Get("Location"))
}
