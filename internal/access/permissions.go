// Package access decides what a signed-in staff member may see and do.
package access

// PermissionKey names one capability flag of an employee profile.
type PermissionKey string

const (
	PermSell          PermissionKey = "peut_vendre"
	PermManageStock   PermissionKey = "peut_gerer_stock"
	PermViewOrders    PermissionKey = "peut_voir_commandes"
	PermProcessOrders PermissionKey = "peut_traiter_commandes"
	PermCancelSale    PermissionKey = "peut_annuler_vente"
	PermRecordInvoice PermissionKey = "peut_enregistrer_facture"
)

var allPermissions = []PermissionKey{
	PermSell,
	PermManageStock,
	PermViewOrders,
	PermProcessOrders,
	PermCancelSale,
	PermRecordInvoice,
}

// AllPermissions lists the recognised permission keys in display order.
func AllPermissions() []PermissionKey {
	out := make([]PermissionKey, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ParsePermission maps a wire key to a PermissionKey.
func ParsePermission(raw string) (PermissionKey, bool) {
	for _, k := range allPermissions {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// Label returns the French label shown in the staff screens.
func (k PermissionKey) Label() string {
	switch k {
	case PermSell:
		return "Vendre"
	case PermManageStock:
		return "Gérer le stock"
	case PermViewOrders:
		return "Voir les commandes"
	case PermProcessOrders:
		return "Traiter les commandes"
	case PermCancelSale:
		return "Annuler une vente"
	case PermRecordInvoice:
		return "Enregistrer une facture"
	default:
		return string(k)
	}
}

// Profile is the permission profile of an employee.
type Profile struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user"`
	PharmacyID       int64  `json:"pharmacie"`
	Position         string `json:"poste"`
	CanSell          bool   `json:"peut_vendre"`
	CanManageStock   bool   `json:"peut_gerer_stock"`
	CanViewOrders    bool   `json:"peut_voir_commandes"`
	CanProcessOrders bool   `json:"peut_traiter_commandes"`
	CanCancelSale    bool   `json:"peut_annuler_vente"`
	CanRecordInvoice bool   `json:"peut_enregistrer_facture"`
}

// Has reports whether the flag behind k is set. Unknown keys are false.
func (p *Profile) Has(k PermissionKey) bool {
	if p == nil {
		return false
	}
	switch k {
	case PermSell:
		return p.CanSell
	case PermManageStock:
		return p.CanManageStock
	case PermViewOrders:
		return p.CanViewOrders
	case PermProcessOrders:
		return p.CanProcessOrders
	case PermCancelSale:
		return p.CanCancelSale
	case PermRecordInvoice:
		return p.CanRecordInvoice
	default:
		return false
	}
}

// Granted lists the keys set on the profile.
func (p *Profile) Granted() []PermissionKey {
	var out []PermissionKey
	for _, k := range allPermissions {
		if p.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
