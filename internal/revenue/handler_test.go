package revenue

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/pharmaapi/pharmatest"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	"github.com/esora/officine/internal/workspace"
	_ "github.com/esora/officine/testing"
)

var owner = identity.User{ID: 1, Name: "Fatou Sow", Role: identity.RoleOwner}

type fixtureEnv struct {
	api     *pharmatest.Server
	cache   *cache.Versioned
	handler *Handler
	sess    *shared.Session
}

func newEnv(t *testing.T) *fixtureEnv {
	t.Helper()
	api := pharmatest.New(t)
	api.AddPharmacy(pharmaapi.Pharmacy{ID: 5, Name: "Pharmacie du Port", OwnerID: owner.ID})
	for _, o := range fixture() {
		o.PharmacyID = 5
		api.AddOrder(o)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	versioned := cache.NewVersioned(rdb, time.Minute, nil)
	sessions := shared.NewSessionManager(rdb, "test_session", time.Hour, false)
	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.Identity().SignIn("tok-owner", "refresh-tok-owner", owner))

	tokens := func(r *http.Request) *identity.Store { return shared.SessionFromContext(r.Context()).Identity() }
	menu := nav.DefaultMenu()
	ws := workspace.New(api.Client(), tokens, access.NewProfileLoader(time.Minute, nil, nil), versioned, menu, nil)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := view.NewPresenter(engine, shared.NewCSRFManager("csrfsecret"), menu, nil, nil)

	h := NewHandler(nil, ws, pages, time.UTC)
	h.now = func() time.Time { return now }
	return &fixtureEnv{api: api, cache: versioned, handler: h, sess: sess}
}

func (e *fixtureEnv) get() *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route(nav.PathRevenue, e.handler.MountRoutes)
	req := httptest.NewRequest(http.MethodGet, nav.PathRevenue, nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), e.sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRevenuePageIsCachedUntilBump(t *testing.T) {
	env := newEnv(t)

	rec := env.get()
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Pharmacie du Port")
	assert.Contains(t, body, "Cette semaine")
	assert.Contains(t, body, "87,5 %")
	assert.Contains(t, body, "Ventes des 7 derniers jours")
	assert.Contains(t, body, `<meter min="0" max="100" value="80">`)

	env.get()
	assert.Equal(t, 1, env.api.Hits(http.MethodGet, "/commandes/"))

	require.NoError(t, env.cache.Bump(context.Background(), cache.PharmacyScope(5)))
	env.get()
	assert.Equal(t, 2, env.api.Hits(http.MethodGet, "/commandes/"))
}

func TestRevenueWithoutPharmacyIsNotFound(t *testing.T) {
	env := newEnv(t)
	env.sess.Identity().Logout()
	require.NoError(t, env.sess.Identity().SignIn("tok-other", "refresh-tok-other", identity.User{ID: 42, Role: identity.RoleOwner}))

	rec := env.get()
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
