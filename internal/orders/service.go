package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/platform/cache"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/workflow"
	"github.com/esora/officine/internal/workspace"
)

// Transition results reported to the Observer.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Observer counts submitted transitions.
type Observer interface {
	ObserveTransition(action, result string)
}

// Service applies workflow transitions through the remote API.
type Service struct {
	cache    *cache.Versioned
	audit    *shared.AuditLogger
	observer Observer
	logger   *slog.Logger
}

// NewService constructs a Service. Every argument may be nil.
func NewService(c *cache.Versioned, audit *shared.AuditLogger, observer Observer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: c, audit: audit, observer: observer, logger: logger}
}

// Apply moves order through action. On any error the order is returned
// unchanged so the caller can retry with the same inputs; on success the
// server's version of the order is returned.
func (s *Service) Apply(ctx context.Context, caller *workspace.Caller, order pharmaapi.Order, action workflow.Action, message string) (pharmaapi.Order, error) {
	t, err := workflow.Find(order.Status, action)
	if err != nil {
		s.observe(action, ResultRejected)
		return order, err
	}
	message = strings.TrimSpace(message)
	if err := t.Validate(message); err != nil {
		s.observe(action, ResultRejected)
		return order, err
	}

	updated, err := caller.API.Orders.UpdateStatus(ctx, order.ID, t.To, message)
	if err != nil {
		s.observe(action, ResultError)
		s.logger.Warn("order transition failed",
			slog.Int64("order_id", order.ID),
			slog.String("action", string(action)),
			slog.Any("error", err))
		return order, fmt.Errorf("orders: %s order %d: %w", action, order.ID, err)
	}
	s.observe(action, ResultOK)
	s.logger.Info("order transition",
		slog.Int64("order_id", order.ID),
		slog.Int64("user_id", caller.User.ID),
		slog.String("from", string(t.From)),
		slog.String("to", string(t.To)))

	if err := s.cache.Bump(ctx, cache.PharmacyScope(order.PharmacyID)); err != nil {
		s.logger.Warn("cache bump", slog.Any("error", err))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  caller.User.ID,
			Action:   string(action),
			Entity:   "commande",
			EntityID: strconv.FormatInt(order.ID, 10),
			Meta: map[string]any{
				"numero":   order.Number,
				"from":     t.From,
				"to":       t.To,
				"message":  message,
				"pharmacy": order.PharmacyID,
			},
		})
		if err != nil {
			s.logger.Warn("audit order transition", slog.Any("error", err))
		}
	}
	if updated == nil || updated.ID == 0 {
		next := order
		next.Status = t.To
		return next, nil
	}
	return *updated, nil
}

func (s *Service) observe(action workflow.Action, result string) {
	if s.observer != nil {
		s.observer.ObserveTransition(string(action), result)
	}
}
