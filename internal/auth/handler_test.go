package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/auth"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/view"
	_ "github.com/esora/officine/testing"
)

type stubAPI struct {
	result *pharmaapi.LoginResult
	err    error
	calls  int
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (*pharmaapi.LoginResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type harness struct {
	router   chi.Router
	sessions *shared.SessionManager
	loader   *access.ProfileLoader
	api      *stubAPI
}

func newHarness(t *testing.T, api *stubAPI) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	engine, err := view.NewEngine()
	require.NoError(t, err)
	pages := view.NewPresenter(engine, csrf, nav.DefaultMenu(), nil, nil)
	loader := access.NewProfileLoader(time.Minute, nil, nil)
	handler := auth.NewHandler(nil, auth.NewService(api, loader), pages, sessions, csrf, "/dashboard")

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return &harness{router: r, sessions: sessions, loader: loader, api: api}
}

// do runs req with a loaded session and commits it the way the session
// middleware does. It returns the recorder and the committed session.
func (h *harness) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := h.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req.WithContext(ctx))
	require.NoError(t, h.sessions.Commit(ctx, rec, sess))
	return rec, sess
}

func postLogin(values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func ownerLogin() *pharmaapi.LoginResult {
	return &pharmaapi.LoginResult{
		Access:  "access-1",
		Refresh: "refresh-1",
		User:    identity.User{ID: 9, Email: "owner@pharma.sn", Name: "Fatou Sow", Role: identity.RoleOwner, Active: true},
	}
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range (&http.Response{Header: rec.Header()}).Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t, &stubAPI{})
	rec, sess := h.do(t, httptest.NewRequest(http.MethodGet, "/auth/login?next=/commandes", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `value="/commandes"`)
	assert.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, &stubAPI{err: pharmaapi.ErrInvalidCredentials})
	rec, sess := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"wrong"}}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email ou mot de passe incorrect")
	assert.False(t, sess.Identity().IsAuthenticated())
}

func TestLoginValidationSkipsRemoteCall(t *testing.T) {
	api := &stubAPI{result: ownerLogin()}
	h := newHarness(t, api)
	rec, _ := h.do(t, postLogin(url.Values{"email": {"not-an-email"}, "password": {""}}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, api.calls)
}

func TestLoginRejectsNonStaff(t *testing.T) {
	res := ownerLogin()
	res.User.Role = identity.Role("patient")
	h := newHarness(t, &stubAPI{result: res})
	rec, sess := h.do(t, postLogin(url.Values{"email": {"p@x.sn"}, "password": {"secret"}}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Accès réservé aux pharmaciens uniquement")
	assert.False(t, sess.Identity().IsAuthenticated())
}

func TestLoginRemoteUnavailable(t *testing.T) {
	h := newHarness(t, &stubAPI{err: pharmaapi.ErrUnavailable})
	rec, _ := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"secret"}}, nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Veuillez réessayer")
}

func TestLoginSuccessRenewsSessionAndStoresIdentity(t *testing.T) {
	h := newHarness(t, &stubAPI{result: ownerLogin()})

	first, firstSess := h.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	cookie := sessionCookie(first, "test_session")
	require.NotNil(t, cookie)
	oldToken := firstSess.Get(shared.CSRFSessionKey)

	rec, sess := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"secret"}}, cookie))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.NotEqual(t, cookie.Value, sess.ID, "session id renewed at sign-in")
	assert.NotEqual(t, oldToken, sess.Get(shared.CSRFSessionKey))

	store := sess.Identity()
	assert.Equal(t, "access-1", store.AccessToken())
	assert.Equal(t, "refresh-1", store.RefreshToken())
	require.NotNil(t, store.CurrentUser())
	assert.Equal(t, int64(9), store.CurrentUser().ID)
	assert.Equal(t, "9", sess.User())

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Contains(t, flash.Message, "Fatou Sow")
}

func TestLoginHonoursSafeNext(t *testing.T) {
	cases := map[string]string{
		"/commandes/3":         "/commandes/3",
		"//evil.example/":      "/dashboard",
		"https://evil.example": "/dashboard",
		"/auth/logout":         "/dashboard",
		"":                     "/dashboard",
	}
	for next, want := range cases {
		h := newHarness(t, &stubAPI{result: ownerLogin()})
		rec, _ := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"secret"}, "next": {next}}, nil))
		assert.Equal(t, want, rec.Header().Get("Location"), "next=%q", next)
	}
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	h := newHarness(t, &stubAPI{result: ownerLogin()})
	rec, _ := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"secret"}}, nil))
	cookie := sessionCookie(rec, "test_session")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(cookie)
	again, _ := h.do(t, req)
	assert.Equal(t, http.StatusSeeOther, again.Code)
	assert.Equal(t, "/dashboard", again.Header().Get("Location"))
}

func TestLogoutClearsIdentityAndProfile(t *testing.T) {
	h := newHarness(t, &stubAPI{result: ownerLogin()})
	rec, _ := h.do(t, postLogin(url.Values{"email": {"owner@pharma.sn"}, "password": {"secret"}}, nil))
	cookie := sessionCookie(rec, "test_session")
	require.NotNil(t, cookie)

	h.loader.Load(context.Background(), 9, func(context.Context) (*access.Profile, error) {
		return &access.Profile{UserID: 9, CanViewOrders: true}, nil
	})
	_, cached := h.loader.Peek(9)
	require.True(t, cached)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	out, sess := h.do(t, req)

	assert.Equal(t, http.StatusSeeOther, out.Code)
	assert.Equal(t, "/auth/login", out.Header().Get("Location"))
	assert.False(t, sess.Identity().IsAuthenticated())
	_, cached = h.loader.Peek(9)
	assert.False(t, cached)

	cleared := sessionCookie(out, "test_session")
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	reuse := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	reuse.AddCookie(cookie)
	page, fresh := h.do(t, reuse)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.NotEqual(t, cookie.Value, fresh.ID)
}
