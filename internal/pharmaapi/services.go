package pharmaapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/workflow"
)

// OrderService covers patient orders.
type OrderService struct {
	s *Session
}

// List returns the orders of a pharmacy, optionally filtered by status.
func (o *OrderService) List(ctx context.Context, pharmacyID int64, status workflow.Status) ([]Order, error) {
	query := url.Values{}
	if pharmacyID > 0 {
		query.Set("pharmacie", strconv.FormatInt(pharmacyID, 10))
	}
	if status != "" {
		query.Set("statut", string(status))
	}
	var out []Order
	if err := o.s.call(ctx, http.MethodGet, "/commandes/", query, nil, listOf[Order]{&out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one order.
func (o *OrderService) Get(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := o.s.call(ctx, http.MethodGet, fmt.Sprintf("/commandes/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves an order to status and notifies the patient with
// message.
func (o *OrderService) UpdateStatus(ctx context.Context, id int64, status workflow.Status, message string) (*Order, error) {
	var out Order
	path := fmt.Sprintf("/commandes/%d/update-with-notification/", id)
	if err := o.s.call(ctx, http.MethodPatch, path, nil, statusUpdate{Status: status, Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmployeeService covers the employee endpoints.
type EmployeeService struct {
	s *Session
}

// MyProfile returns the permission profile of the signed-in employee.
func (e *EmployeeService) MyProfile(ctx context.Context) (*access.Profile, error) {
	var out access.Profile
	if err := e.s.call(ctx, http.MethodGet, "/employes/mon-profil/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PharmacyService covers pharmacy accounts.
type PharmacyService struct {
	s *Session
}

// Get returns one pharmacy.
func (p *PharmacyService) Get(ctx context.Context, id int64) (*Pharmacy, error) {
	var out Pharmacy
	if err := p.s.call(ctx, http.MethodGet, fmt.Sprintf("/pharmacies/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mine returns the pharmacy of user: the one it owns, or the one its
// employee profile points to.
func (p *PharmacyService) Mine(ctx context.Context, user *identity.User, profile *access.Profile) (*Pharmacy, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if user.IsEmployee() {
		if profile == nil || profile.PharmacyID == 0 {
			return nil, ErrNotFound
		}
		return p.Get(ctx, profile.PharmacyID)
	}
	var all []Pharmacy
	if err := p.s.call(ctx, http.MethodGet, "/pharmacies/", nil, nil, listOf[Pharmacy]{&all}); err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].OwnerID == user.ID {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// StockService covers stock levels.
type StockService struct {
	s *Session
}

// List returns the stock lines of a pharmacy.
func (st *StockService) List(ctx context.Context, pharmacyID int64) ([]StockItem, error) {
	query := url.Values{}
	if pharmacyID > 0 {
		query.Set("pharmacie", strconv.FormatInt(pharmacyID, 10))
	}
	var out []StockItem
	if err := st.s.call(ctx, http.MethodGet, "/stocks-produits/", query, nil, listOf[StockItem]{&out}); err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationService covers the notification inbox.
type NotificationService struct {
	s *Session
}

// List returns the notifications of the signed-in user.
func (n *NotificationService) List(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := n.s.call(ctx, http.MethodGet, "/notifications/", nil, nil, listOf[Notification]{&out}); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (n *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	all, err := n.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range all {
		if !item.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification as read.
func (n *NotificationService) MarkRead(ctx context.Context, id int64) error {
	return n.s.call(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/marquer-lu/", id), nil, struct{}{}, nil)
}

// MarkAllRead marks every notification as read.
func (n *NotificationService) MarkAllRead(ctx context.Context) error {
	return n.s.call(ctx, http.MethodPost, "/notifications/marquer-tout-lu/", nil, struct{}{}, nil)
}

// FetchProfile loads the employee profile with tokens.
func (c *Client) FetchProfile(ctx context.Context, tokens *identity.Store) (*access.Profile, error) {
	return c.Bind(tokens).Employees.MyProfile(ctx)
}
