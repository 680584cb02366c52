// Package pharmatest provides an in-memory stand-in for the remote pharmacy
// API, for use in handler tests.
package pharmatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/workflow"
)

// Update records one status change received by the server.
type Update struct {
	OrderID int64
	Status  workflow.Status
	Message string
}

// Server is a fake remote API. Any non-empty bearer token is accepted
// unless it was revoked.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	logins        map[string]login
	profiles      map[string]access.Profile
	revoked       map[string]bool
	pharmacies    []pharmaapi.Pharmacy
	orders        map[int64]pharmaapi.Order
	stocks        []pharmaapi.StockItem
	notifications []pharmaapi.Notification
	updates       []Update
	failUpdates   int
	failReads     int
	hits          map[string]int
	now           func() time.Time
}

type login struct {
	password string
	result   pharmaapi.LoginResult
}

// New starts a Server closed at the end of t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		logins:   map[string]login{},
		profiles: map[string]access.Profile{},
		revoked:  map[string]bool{},
		orders:   map[int64]pharmaapi.Order{},
		hits:     map[string]int{},
		now:      time.Now,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Config returns a client configuration pointing at s without retries.
func (s *Server) Config() pharmaapi.Config {
	return pharmaapi.Config{BaseURL: s.URL, Timeout: 5 * time.Second}
}

// Client returns a client for s.
func (s *Server) Client() *pharmaapi.Client {
	return pharmaapi.NewClient(s.Config(), nil)
}

// Tokens returns an identity store signed in as user with token.
func Tokens(token string, user identity.User) *identity.Store {
	store := identity.NewStore(identity.MapKV{})
	_ = store.SignIn(token, "refresh-"+token, user)
	return store
}

// AddLogin registers credentials answered by the login endpoint.
func (s *Server) AddLogin(email, password string, result pharmaapi.LoginResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins[email] = login{password: password, result: result}
}

// SetProfile answers /employes/mon-profil/ for token.
func (s *Server) SetProfile(token string, p access.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[token] = p
}

// Revoke makes token answer 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// AddPharmacy stores a pharmacy.
func (s *Server) AddPharmacy(p pharmaapi.Pharmacy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pharmacies = append(s.pharmacies, p)
}

// AddOrder stores or replaces an order.
func (s *Server) AddOrder(o pharmaapi.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Order returns the stored order with id.
func (s *Server) Order(id int64) (pharmaapi.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// AddStock stores a stock line.
func (s *Server) AddStock(item pharmaapi.StockItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks = append(s.stocks, item)
}

// AddNotification stores a notification.
func (s *Server) AddNotification(n pharmaapi.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

// Notifications returns a copy of the stored notifications.
func (s *Server) Notifications() []pharmaapi.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pharmaapi.Notification(nil), s.notifications...)
}

// FailUpdates makes status updates answer code until reset with 0.
func (s *Server) FailUpdates(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates = code
}

// FailReads makes every GET answer code until reset with 0.
func (s *Server) FailReads(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = code
}

// Updates returns the status changes received so far.
func (s *Server) Updates() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Update(nil), s.updates...)
}

// Hits returns how often method and path were requested.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Post("/auth/pharmacy-login/", s.login)
	r.Post("/auth/refresh/", s.refresh)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/employes/mon-profil/", s.myProfile)
		r.Get("/pharmacies/", s.listPharmacies)
		r.Get("/pharmacies/{id}/", s.getPharmacy)
		r.Get("/commandes/", s.listOrders)
		r.Get("/commandes/{id}/", s.getOrder)
		r.Patch("/commandes/{id}/update-with-notification/", s.updateOrder)
		r.Get("/stocks-produits/", s.listStocks)
		r.Get("/notifications/", s.listNotifications)
		r.Post("/notifications/marquer-tout-lu/", s.markAllRead)
		r.Post("/notifications/{id}/marquer-lu/", s.markRead)
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		fail := s.failReads
		s.mu.Unlock()
		if fail != 0 && r.Method == http.MethodGet {
			w.WriteHeader(fail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		revoked := s.revoked[token]
		s.mu.Unlock()
		if token == "" || revoked {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token invalide"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	l, ok := s.logins[body.Email]
	s.mu.Unlock()
	if !ok || l.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "identifiants invalides"})
		return
	}
	writeJSON(w, http.StatusOK, l.result)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if !strings.HasPrefix(body.Refresh, "refresh-") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh invalide"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": strings.TrimPrefix(body.Refresh, "refresh-") + "-renewed"})
}

func (s *Server) myProfile(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	p, ok := s.profiles[token]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "profil introuvable"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listPharmacies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]pharmaapi.Pharmacy{}, s.pharmacies...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "results": out})
}

func (s *Server) getPharmacy(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pharmacies {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "introuvable"})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	pharmacy, _ := strconv.ParseInt(r.URL.Query().Get("pharmacie"), 10, 64)
	status := workflow.Status(r.URL.Query().Get("statut"))
	s.mu.Lock()
	out := make([]pharmaapi.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if pharmacy != 0 && o.PharmacyID != pharmacy {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OrderedAt.After(out[j].OrderedAt) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Order(pathID(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "introuvable"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status  workflow.Status `json:"statut"`
		Message string          `json:"message_patient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Status.Known() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"statut": "invalide"})
		return
	}
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates != 0 {
		writeJSON(w, s.failUpdates, map[string]string{"detail": "échec"})
		return
	}
	o, ok := s.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "introuvable"})
		return
	}
	now := s.now()
	o.Status = body.Status
	switch body.Status {
	case workflow.StatusConfirmed:
		o.ConfirmedAt = &now
	case workflow.StatusPrepared:
		o.PreparedAt = &now
	case workflow.StatusReady:
		o.ReadyAt = &now
	case workflow.StatusPickedUp:
		o.PickedUpAt = &now
	}
	if body.Message != "" {
		o.PharmacyNotes = body.Message
	}
	s.orders[id] = o
	s.updates = append(s.updates, Update{OrderID: id, Status: body.Status, Message: body.Message})
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) listStocks(w http.ResponseWriter, r *http.Request) {
	pharmacy, _ := strconv.ParseInt(r.URL.Query().Get("pharmacie"), 10, 64)
	s.mu.Lock()
	out := []pharmaapi.StockItem{}
	for _, item := range s.stocks {
		if pharmacy == 0 || item.PharmacyID == pharmacy {
			out = append(out, item)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Notifications())
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			writeJSON(w, http.StatusOK, s.notifications[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "introuvable"})
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(s.notifications)})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
