package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/inventory"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-stock-orders/internal/fulfillment")

// StatusView is what the status lookup returns and what the cache holds.
type StatusView struct {
	OrderID   string        `json:"order_id"`
	UserID    string        `json:"user_id"`
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusCache is a read-through cache for StatusView. Misses return ok=false.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, bool, error)
	Set(ctx context.Context, v StatusView) error
	Invalidate(ctx context.Context, orderID string) error
}

// Transition is the outcome of UpdateStatus.
type Transition struct {
	OrderID     string             `json:"order_id"`
	From        orders.Status      `json:"from"`
	To          orders.Status      `json:"to"`
	StockAction orders.StockAction `json:"stock_action"`
}

type Service struct {
	store    orders.Store
	ledger   inventory.Ledger
	cache    StatusCache
	producer string
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewService wires the status machine. cache may be nil.
func NewService(store orders.Store, cache StatusCache, producer string, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, producer: producer, log: log, metrics: m}
}

// UpdateStatus moves an order to status to. Entering cancelled restores every
// line's stock; leaving cancelled re-reduces every line or fails with
// ErrInsufficientStockForReactivation leaving stock and status untouched.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to orders.Status) (Transition, error) {
	if orderID == "" {
		return Transition{}, orders.Validationf("order id is required")
	}
	if _, err := orders.ParseStatus(string(to)); err != nil {
		return Transition{}, err
	}
	ctx, span := tracer.Start(ctx, "fulfillment.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status.to", string(to)))

	var (
		t     Transition
		units int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		t = Transition{OrderID: o.ID, From: o.Status, To: to, StockAction: orders.CompensationFor(o.Status, to)}
		if !orders.CanTransition(o.Status, to) {
			return fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, o.Status, to)
		}
		if o.Status == to {
			return nil
		}

		switch t.StockAction {
		case orders.StockRestore:
			if err := s.ledger.RestoreLines(ctx, tx, o.Lines); err != nil {
				return err
			}
		case orders.StockReduce:
			if err := s.reactivate(ctx, tx, o); err != nil {
				return err
			}
		}
		units = inventory.Units(o.Lines)

		if err := tx.SetOrderStatus(ctx, o.ID, to); err != nil {
			return err
		}
		ev, err := orders.StatusChangedEvent(s.producer, o.ID, o.Status, to)
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, ev.Traced(ctx))
	})
	if err != nil {
		s.metrics.Transition(string(t.From), string(to), "rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, orders.ErrDatabase) {
			s.log.Error("status update failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return Transition{}, err
	}
	if t.From == t.To {
		return t, nil
	}

	s.metrics.Transition(string(t.From), string(t.To), "ok")
	s.metrics.Compensated(string(t.StockAction), units)
	s.log.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("stock_action", string(t.StockAction)))
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, orderID); err != nil {
			s.log.Warn("status cache invalidate failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return t, nil
}

// reactivate checks every line before touching stock so a shortage on one
// product never leaves another already reduced.
func (s *Service) reactivate(ctx context.Context, tx orders.Tx, o orders.Order) error {
	shortages, err := s.ledger.Shortages(ctx, tx, o.Lines)
	if err != nil {
		return err
	}
	if len(shortages) > 0 {
		return &orders.ReactivationError{OrderID: o.ID, Shortages: shortages}
	}
	short, err := s.ledger.ReduceLines(ctx, tx, o.Lines)
	if err != nil {
		return err
	}
	if short != nil {
		return &orders.ReactivationError{OrderID: o.ID, Shortages: []orders.StockShortage{*short}}
	}
	return nil
}
