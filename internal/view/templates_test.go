package view

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/workflow"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestFormatMoney(t *testing.T) {
	out := FormatMoney(decimal.RequireFromString("12500.4"))
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "500")
	assert.Contains(t, out, "FCFA")
	assert.NotContains(t, out, ",4")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "87,5 %", FormatPercent(decimal.RequireFromString("87.5")))
	assert.Equal(t, "-75,0 %", FormatPercent(decimal.NewFromInt(-75)))
}

func TestFormatDateTime(t *testing.T) {
	var missing *time.Time
	assert.Empty(t, formatDateTime(missing))
	assert.Empty(t, formatDateTime(time.Time{}))
	ts := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	assert.Contains(t, formatDateTime(&ts), "09/03/2024")
}

func TestRenderUnknownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, engine.Render(rec, "pages/missing.html", TemplateData{}))
	assert.Equal(t, 200, rec.Code, "nothing written on failure")
	assert.Empty(t, rec.Body.String())
}

func sampleOrder() pharmaapi.Order {
	picked := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	return pharmaapi.Order{
		ID:               7,
		Number:           "CMD-0007",
		PatientFirstName: "Awa",
		PatientLastName:  "Diop",
		Status:           workflow.StatusPending,
		Total:            decimal.NewFromInt(4500),
		OrderedAt:        time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC),
		PickedUpAt:       &picked,
		Lines: []pharmaapi.OrderLine{{
			ID:        1,
			Product:   pharmaapi.Product{ID: 3, Name: "Paracétamol 500mg"},
			Quantity:  3,
			UnitPrice: decimal.NewFromInt(1500),
			Subtotal:  decimal.NewFromInt(4500),
		}},
	}
}

func TestRenderPages(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	owner := &identity.User{ID: 1, Name: "Moussa Ndiaye", Role: identity.RoleOwner}
	menu := nav.Compose(nav.DefaultMenu(), owner, nil, counters.Snapshot{counters.PendingOrders: 4}, nav.PathOrders)
	order := sampleOrder()
	confirm, _ := workflow.Advance(order.Status)

	cases := []struct {
		name string
		data any
		want string
	}{
		{"pages/login.html", struct{ Email, Next, Error string }{"a@b.c", "/commandes", "Identifiants invalides"}, "Identifiants invalides"},
		{"pages/loading.html", nil, "Chargement"},
		{"pages/forbidden.html", nil, "Accès refusé"},
		{"pages/error.html", nil, "Service indisponible"},
		{"pages/dashboard.html", map[string]any{
			"Pharmacy":      &pharmaapi.Pharmacy{Name: "Pharmacie du Port", City: "Dakar"},
			"ShowOrders":    true,
			"ShowRevenue":   true,
			"ShowStock":     true,
			"OrdersToday":   2,
			"PendingOrders": 1,
			"ReadyOrders":   0,
			"RevenueToday":  decimal.NewFromInt(4500),
			"RevenueMonth":  decimal.NewFromInt(90000),
			"OutOfStock":    1,
			"LowStock":      2,
			"RecentOrders":  []pharmaapi.Order{order},
			"Notifications": []pharmaapi.Notification{{ID: 1, Title: "Nouvelle commande"}},
			"Warnings":      []string{},
		}, "Pharmacie du Port"},
		{"pages/orders.html", map[string]any{
			"Orders": []pharmaapi.Order{order},
			"Stats": []struct {
				Status workflow.Status
				Count  int
			}{{workflow.StatusPending, 1}},
			"Total":      1,
			"Query":      "",
			"Status":     workflow.Status(""),
			"Statuses":   workflow.Statuses(),
			"Pagination": shared.NewPagination(1, 20, 1),
		}, "CMD-0007"},
		{"pages/order_detail.html", map[string]any{
			"Order":   order,
			"Actions": workflow.Available(order.Status),
		}, "/commandes/7/actions/confirmer"},
		{"pages/order_action.html", map[string]any{
			"Order":          order,
			"Transition":     confirm,
			"Presentation":   confirm.Presentation(),
			"Message":        "Bonjour",
			"Error":          "",
			"IdempotencyKey": "k-1",
		}, `name="idempotency_key" value="k-1"`},
		{"pages/notifications.html", map[string]any{
			"Items":  []pharmaapi.Notification{{ID: 4, Title: "Stock bas"}},
			"Unread": 1,
		}, "/notifications/4/marquer-lu"},
		{"pages/revenue.html", map[string]any{
			"Pharmacy": &pharmaapi.Pharmacy{Name: "Pharmacie du Port"},
			"Periods": []struct {
				Label            string
				Revenue, Average decimal.Decimal
				Orders           int
			}{{"Aujourd'hui", decimal.NewFromInt(4500), decimal.NewFromInt(4500), 1}},
			"Growth":    decimal.NewFromFloat(12.5),
			"HasGrowth": true,
			"Recent":    []pharmaapi.Order{order},
		}, "Aujourd&#39;hui"},
		{"pages/section.html", map[string]any{
			"Heading":     "Stocks",
			"Description": "Gestion des stocks",
			"Permissions": nil,
		}, "Gestion des stocks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := engine.Render(rec, tc.name, TemplateData{
				Title:       "Test",
				CSRFToken:   "tok",
				CurrentPath: nav.PathOrders,
				User:        owner,
				Menu:        menu,
				Data:        tc.data,
			})
			require.NoError(t, err)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestLayoutShowsMenuBadges(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	owner := &identity.User{ID: 1, Name: "Moussa Ndiaye", Role: identity.RoleOwner}
	menu := nav.Compose(nav.DefaultMenu(), owner, nil, counters.Snapshot{counters.PendingOrders: 4}, nav.PathOrders)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/section.html", TemplateData{
		Title: "Ventes", User: owner, Menu: menu,
		Data: map[string]any{"Heading": "Ventes", "Description": "", "Permissions": nil},
	}))
	body := rec.Body.String()
	assert.Contains(t, body, `data-counter="pending_orders"`)
	assert.Contains(t, body, ">4</span>")
	assert.Contains(t, body, "MN")
	assert.Contains(t, body, "Gestion")
}
