package nav

import (
	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/counters"
)

// Route paths of the console.
const (
	PathDashboard     = "/dashboard"
	PathSales         = "/ventes"
	PathStock         = "/stocks"
	PathOrders        = "/commandes"
	PathInvoices      = "/factures"
	PathNotifications = "/notifications"
	PathEmployees     = "/employes"
	PathRevenue       = "/revenus"
	PathSettings      = "/parametres"
)

// DefaultMenu returns the console menu descriptor.
func DefaultMenu() []Entry {
	return []Entry{
		{Title: "Dashboard", Icon: "home", Path: PathDashboard, Access: access.Staff()},
		{Title: "Ventes", Icon: "cart", Path: PathSales, Access: access.Staff(access.PermSell)},
		{Title: "Stocks", Icon: "box", Path: PathStock, Access: access.Staff(access.PermManageStock)},
		{
			Title:  "Commandes",
			Icon:   "clipboard",
			Path:   PathOrders,
			Access: access.Staff(access.PermViewOrders, access.PermProcessOrders),
			Badge:  counters.PendingOrders,
		},
		{Title: "Factures", Icon: "receipt", Path: PathInvoices, Access: access.Staff(access.PermRecordInvoice)},
		{
			Title:  "Notifications",
			Icon:   "bell",
			Path:   PathNotifications,
			Access: access.Staff(),
			Badge:  counters.UnreadNotifications,
		},
		{
			Title:  "Gestion",
			Icon:   "settings",
			Access: access.Staff(),
			Children: []Entry{
				{Title: "Employés", Icon: "users", Path: PathEmployees, Access: access.OwnerOnly()},
				{Title: "Revenus", Icon: "chart", Path: PathRevenue, Access: access.OwnerOnly()},
				{Title: "Paramètres", Icon: "cog", Path: PathSettings, Access: access.OwnerOnly()},
			},
		},
	}
}
