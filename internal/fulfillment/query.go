package fulfillment

import (
	"context"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.uber.org/zap"
)

// UserOrders lists one user's orders newest first, lines included.
func (s *Service) UserOrders(ctx context.Context, userID string) ([]orders.Order, error) {
	if userID == "" {
		return nil, orders.Validationf("user id is required")
	}
	return s.list(ctx, userID)
}

// AllOrders is the admin listing across users.
func (s *Service) AllOrders(ctx context.Context) ([]orders.Order, error) {
	return s.list(ctx, "")
}

func (s *Service) list(ctx context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	err := s.store.View(ctx, func(ctx context.Context, r orders.Reader) error {
		var err error
		out, err = r.ListOrders(ctx, userID)
		return err
	})
	return out, err
}

// Status reads through the status cache. Cache failures fall back to the
// store.
func (s *Service) Status(ctx context.Context, orderID string) (StatusView, error) {
	if s.cache != nil {
		v, ok, err := s.cache.Get(ctx, orderID)
		if err != nil {
			s.log.Warn("status cache get failed", zap.String("order_id", orderID), zap.Error(err))
		} else if ok {
			return v, nil
		}
	}

	var v StatusView
	err := s.store.View(ctx, func(ctx context.Context, r orders.Reader) error {
		o, err := r.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		v = StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: o.UpdatedAt}
		return nil
	})
	if err != nil {
		return StatusView{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, v); err != nil {
			s.log.Warn("status cache set failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return v, nil
}
