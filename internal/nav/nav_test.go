package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/identity"
)

var (
	owner    = &identity.User{ID: 1, Role: identity.RoleOwner}
	employee = &identity.User{ID: 2, Role: identity.RoleEmployee}
)

func titles(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestComposeOwnerSeesEverything(t *testing.T) {
	items := Compose(DefaultMenu(), owner, nil, nil, PathDashboard)
	assert.Equal(t, []string{"Dashboard", "Ventes", "Stocks", "Commandes", "Factures", "Notifications", "Gestion"}, titles(items))
	assert.Equal(t, []string{"Employés", "Revenus", "Paramètres"}, titles(items[6].Children))
	assert.True(t, items[0].Active)
}

func TestComposeEmployeeFiltersByProfile(t *testing.T) {
	profile := &access.Profile{CanSell: true, CanViewOrders: true}
	items := Compose(DefaultMenu(), employee, profile, nil, "/commandes/12")
	assert.Equal(t, []string{"Dashboard", "Ventes", "Commandes", "Notifications"}, titles(items))
	assert.True(t, items[2].Active)
	assert.False(t, items[0].Active)
}

func TestComposeHidesEmptyGroups(t *testing.T) {
	items := Compose(DefaultMenu(), employee, &access.Profile{}, nil, "")
	assert.NotContains(t, titles(items), "Gestion")
}

func TestComposePendingProfileHidesGatedEntries(t *testing.T) {
	items := Compose(DefaultMenu(), employee, nil, nil, "")
	assert.Equal(t, []string{"Dashboard", "Notifications"}, titles(items))
}

func TestComposeAnonymous(t *testing.T) {
	assert.Empty(t, Compose(DefaultMenu(), nil, nil, nil, "/"))
}

func TestComposeBadges(t *testing.T) {
	counts := counters.Snapshot{counters.PendingOrders: 4, counters.UnreadNotifications: 2}
	items := Compose(DefaultMenu(), owner, nil, counts, "")
	badges := map[string]int{}
	for _, it := range items {
		badges[it.Title] = it.Badge
	}
	assert.Equal(t, 4, badges["Commandes"])
	assert.Equal(t, 2, badges["Notifications"])
	assert.Equal(t, 0, badges["Ventes"])
}

func TestComposeMarksActiveGroup(t *testing.T) {
	items := Compose(DefaultMenu(), owner, nil, nil, PathRevenue)
	group := items[len(items)-1]
	require.Equal(t, "Gestion", group.Title)
	assert.True(t, group.Active)
	assert.True(t, group.Children[1].Active)
}

func TestComposeIsDeterministic(t *testing.T) {
	profile := &access.Profile{CanManageStock: true}
	assert.Equal(t,
		Compose(DefaultMenu(), employee, profile, nil, PathStock),
		Compose(DefaultMenu(), employee, profile, nil, PathStock))
}

func TestLookupAndTitle(t *testing.T) {
	menu := DefaultMenu()
	e, ok := Lookup(menu, "/commandes/5/actions/confirmer")
	require.True(t, ok)
	assert.Equal(t, "Commandes", e.Title)

	e, ok = Lookup(menu, PathSettings)
	require.True(t, ok)
	assert.Equal(t, access.OwnerOnly(), e.Access)

	_, ok = Lookup(menu, "/commandes-archive")
	assert.False(t, ok)

	assert.Equal(t, "Revenus", Title(menu, PathRevenue))
	assert.Equal(t, "Dashboard", Title(menu, "/inconnu"))
	assert.Len(t, Leaves(menu), 9)
}
