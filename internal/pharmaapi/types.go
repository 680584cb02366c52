package pharmaapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/workflow"
)

// LoginResult is the payload of a successful pharmacy login.
type LoginResult struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    identity.User `json:"user"`
}

// Pharmacy describes a pharmacy account.
type Pharmacy struct {
	ID      int64  `json:"id"`
	Name    string `json:"nom"`
	Address string `json:"adresse"`
	City    string `json:"ville"`
	Country string `json:"pays"`
	Phone   string `json:"telephone"`
	Email   string `json:"email"`
	OwnerID int64  `json:"user"`
	Active  bool   `json:"actif"`
	Details string `json:"description"`
}

// Product is the catalogue entry referenced by order lines.
type Product struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"nom"`
	Description          string          `json:"description"`
	UnitPrice            decimal.Decimal `json:"prix_unitaire"`
	Unit                 string          `json:"unite"`
	Category             string          `json:"categorie"`
	PrescriptionRequired bool            `json:"prescription_requise"`
}

// OrderLine is one product line of an order.
type OrderLine struct {
	ID        int64           `json:"id"`
	Product   Product         `json:"produit"`
	Quantity  int             `json:"quantite"`
	UnitPrice decimal.Decimal `json:"prix_unitaire"`
	Subtotal  decimal.Decimal `json:"sous_total"`
}

// Order is a patient order placed with the pharmacy.
type Order struct {
	ID               int64           `json:"id"`
	Number           string          `json:"numero_commande"`
	PatientID        int64           `json:"patient"`
	PatientLastName  string          `json:"patient_nom"`
	PatientFirstName string          `json:"patient_prenom"`
	PatientPhone     string          `json:"patient_telephone"`
	PharmacyID       int64           `json:"pharmacie"`
	PharmacyName     string          `json:"pharmacie_nom"`
	Status           workflow.Status `json:"statut"`
	Total            decimal.Decimal `json:"montant_total"`
	PatientNotes     string          `json:"notes_patient"`
	PharmacyNotes    string          `json:"notes_pharmacie"`
	OrderedAt        time.Time       `json:"date_commande"`
	ConfirmedAt      *time.Time      `json:"date_confirmation"`
	PreparedAt       *time.Time      `json:"date_preparation"`
	ReadyAt          *time.Time      `json:"date_prete"`
	PickedUpAt       *time.Time      `json:"date_recuperation"`
	Lines            []OrderLine     `json:"lignes"`
}

// PatientName returns "first last".
func (o Order) PatientName() string {
	switch {
	case o.PatientFirstName == "":
		return o.PatientLastName
	case o.PatientLastName == "":
		return o.PatientFirstName
	default:
		return o.PatientFirstName + " " + o.PatientLastName
	}
}

// CompletedAt returns the pick-up time, falling back to the order time.
func (o Order) CompletedAt() time.Time {
	if o.PickedUpAt != nil && !o.PickedUpAt.IsZero() {
		return *o.PickedUpAt
	}
	return o.OrderedAt
}

// StockItem is a product held in stock by a pharmacy.
type StockItem struct {
	ID          int64           `json:"id"`
	PharmacyID  int64           `json:"pharmacie"`
	ProductID   int64           `json:"produit"`
	ProductName string          `json:"produit_nom"`
	Quantity    int             `json:"quantite"`
	AlertLevel  int             `json:"seuil_alerte"`
	Batch       string          `json:"numero_lot"`
	SalePrice   decimal.Decimal `json:"prix_vente"`
	OutOfStock  bool            `json:"est_en_rupture"`
	BelowAlert  bool            `json:"est_sous_seuil"`
	NearExpiry  bool            `json:"est_proche_expiration"`
}

// Notification is a message addressed to the signed-in user.
type Notification struct {
	ID        int64      `json:"id"`
	Title     string     `json:"titre"`
	Message   string     `json:"message"`
	Type      string     `json:"type_notification"`
	Read      bool       `json:"lu"`
	ReadAt    *time.Time `json:"date_lecture"`
	CreatedAt time.Time  `json:"created_at"`
	Sender    string     `json:"user_nom"`
	OrderID   *int64     `json:"commande"`
}

// IsOrderRelated reports whether the notification concerns an order.
func (n Notification) IsOrderRelated() bool {
	return n.OrderID != nil || len(n.Type) >= 8 && n.Type[:8] == "commande"
}

type statusUpdate struct {
	Status  workflow.Status `json:"statut"`
	Message string          `json:"message_patient"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type page[T any] struct {
	Results []T `json:"results"`
}

// decodeList accepts both a bare array and a paginated {results: [...]}.
func decodeList[T any](raw []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var p page[T]
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p.Results, nil
}
