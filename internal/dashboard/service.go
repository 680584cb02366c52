// Package dashboard assembles the landing page of the console.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/orders"
	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/httpx"
	"github.com/esora/officine/internal/workflow"
	"github.com/esora/officine/internal/workspace"
)

const (
	recentOrders        = 5
	recentNotifications = 5
)

// Warning texts shown above the figures.
const (
	WarnNoPharmacy    = "Aucune pharmacie n'est associée à votre compte."
	WarnOrders        = "Les commandes n'ont pas pu être chargées."
	WarnStock         = "Les stocks n'ont pas pu être chargés."
	WarnNotifications = "Les notifications n'ont pas pu être chargées."
)

// Summary is the content of the dashboard. Each block is shown only when
// the caller may use the matching section.
type Summary struct {
	Pharmacy *pharmaapi.Pharmacy
	Warnings []string

	ShowOrders    bool
	OrdersToday   int
	PendingOrders int
	ReadyOrders   int
	RecentOrders  []pharmaapi.Order

	ShowRevenue  bool
	RevenueToday decimal.Decimal
	RevenueMonth decimal.Decimal

	ShowStock  bool
	OutOfStock int
	LowStock   int

	Notifications []pharmaapi.Notification
}

// Service loads dashboard summaries.
type Service struct {
	workspace *workspace.Workspace
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewService constructs a Service. Days and months are cut in loc.
func NewService(ws *workspace.Workspace, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{workspace: ws, loc: loc, now: time.Now, logger: logger}
}

// WithClock replaces the clock used to find today and this month.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Load builds the summary of caller. Blocks that fail to load become
// warnings; only an expired session aborts the whole page.
func (s *Service) Load(ctx context.Context, caller *workspace.Caller) (Summary, error) {
	sum := Summary{
		ShowOrders:  s.workspace.Can(ctx, caller, nav.PathOrders),
		ShowRevenue: s.workspace.Can(ctx, caller, nav.PathRevenue),
		ShowStock:   s.workspace.Can(ctx, caller, nav.PathStock),
	}
	var mu sync.Mutex
	warn := func(msg string, err error) error {
		if errors.Is(err, httpx.ErrUnauthorized) {
			return err
		}
		s.logger.Warn("dashboard block failed", slog.String("block", msg), slog.Any("error", err))
		mu.Lock()
		sum.Warnings = append(sum.Warnings, msg)
		mu.Unlock()
		return nil
	}

	pharmacy, err := s.workspace.Pharmacy(ctx, caller)
	switch {
	case errors.Is(err, workspace.ErrNoPharmacy):
		sum.Warnings = append(sum.Warnings, WarnNoPharmacy)
		sum.ShowOrders, sum.ShowRevenue, sum.ShowStock = false, false, false
	case errors.Is(err, httpx.ErrUnauthorized):
		return Summary{}, err
	case err != nil:
		return Summary{}, err
	default:
		sum.Pharmacy = pharmacy
	}

	g, gctx := errgroup.WithContext(ctx)
	if sum.ShowOrders || sum.ShowRevenue {
		g.Go(func() error {
			list, err := caller.API.Orders.List(gctx, pharmacy.ID, "")
			if err != nil {
				return warn(WarnOrders, err)
			}
			s.summarizeOrders(&sum, list)
			return nil
		})
	}
	if sum.ShowStock {
		g.Go(func() error {
			items, err := caller.API.Stocks.List(gctx, pharmacy.ID)
			if err != nil {
				return warn(WarnStock, err)
			}
			for _, item := range items {
				switch {
				case item.OutOfStock:
					sum.OutOfStock++
				case item.BelowAlert:
					sum.LowStock++
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		list, err := caller.API.Notifications.List(gctx)
		if err != nil {
			return warn(WarnNotifications, err)
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
		if len(list) > recentNotifications {
			list = list[:recentNotifications]
		}
		sum.Notifications = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// summarizeOrders fills the order and revenue figures. Cancelled orders
// bring no revenue.
func (s *Service) summarizeOrders(sum *Summary, list []pharmaapi.Order) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	today, month := decimal.Zero, decimal.Zero
	for _, o := range list {
		switch {
		case o.Status.Outstanding():
			sum.PendingOrders++
		case o.Status == workflow.StatusReady:
			sum.ReadyOrders++
		}
		at := o.OrderedAt.In(s.loc)
		if !at.Before(dayStart) {
			sum.OrdersToday++
		}
		if o.Status == workflow.StatusCancelled {
			continue
		}
		if !at.Before(dayStart) {
			today = today.Add(o.Total)
		}
		if !at.Before(monthStart) {
			month = month.Add(o.Total)
		}
	}
	sum.RevenueToday, sum.RevenueMonth = today, month

	orders.SortRecent(list)
	if len(list) > recentOrders {
		list = list[:recentOrders]
	}
	sum.RecentOrders = list
}
