package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/cart"
	"github.com/ariefcatur/go-stock-orders/internal/inventory"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-stock-orders/internal/checkout")

// Idempotency remembers which order a client-supplied key produced.
type Idempotency interface {
	Lookup(ctx context.Context, userID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

type Service struct {
	store    orders.Store
	carts    *cart.Service
	ledger   inventory.Ledger
	idem     Idempotency
	producer string
	log      *zap.Logger
	metrics  *metrics.Metrics

	newID func() string
	now   func() time.Time
}

type Option func(*Service)

func WithIdempotency(i Idempotency) Option { return func(s *Service) { s.idem = i } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }

// NewService wires checkout. producer is stamped on emitted events.
func NewService(store orders.Store, carts *cart.Service, producer string, log *zap.Logger, m *metrics.Metrics, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:    store,
		carts:    carts,
		producer: producer,
		log:      log,
		metrics:  m,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateOrder turns the user's reconciled cart into a pending order. The
// order, its lines, the stock reductions, the cart clear and the
// OrderCreated event commit together or not at all.
func (s *Service) CreateOrder(ctx context.Context, userID string) (orders.Order, error) {
	return s.CreateOrderOnce(ctx, userID, "")
}

// CreateOrderOnce is CreateOrder keyed by a client idempotency key. A repeated
// key returns the order the first call created.
func (s *Service) CreateOrderOnce(ctx context.Context, userID, key string) (orders.Order, error) {
	if userID == "" {
		return orders.Order{}, orders.Validationf("user id is required")
	}
	ctx, span := tracer.Start(ctx, "checkout.CreateOrder")
	defer span.End()

	if key != "" && s.idem != nil {
		if id, ok, err := s.idem.Lookup(ctx, userID, key); err != nil {
			s.log.Warn("idempotency lookup failed", zap.Error(err))
		} else if ok {
			o, err := s.order(ctx, id)
			if err == nil {
				span.SetAttributes(attribute.Bool("checkout.replayed", true))
				return o, nil
			}
			s.log.Warn("idempotent order not readable", zap.String("order_id", id), zap.Error(err))
		}
	}

	var (
		o orders.Order
		v cart.View
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		if v, err = s.carts.Reconcile(ctx, tx, userID); err != nil {
			return err
		}
		if v.Empty() {
			if len(v.Removed) > 0 {
				return &orders.StockError{Removed: v.Removed}
			}
			return orders.ErrEmptyCart
		}

		now := s.now()
		o = orders.Order{
			ID:         s.newID(),
			UserID:     userID,
			Status:     orders.StatusPending,
			TotalCents: v.TotalCents,
			CreatedAt:  now,
			UpdatedAt:  now,
			Lines:      v.Entries(),
		}
		for i := range o.Lines {
			o.Lines[i].OrderID = o.ID
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		short, err := s.ledger.ReduceLines(ctx, tx, o.Lines)
		if err != nil {
			return err
		}
		if short != nil {
			return orders.NewStockError(*short)
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}
		ev, err := orders.OrderCreatedEvent(s.producer, o)
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, ev.Traced(ctx))
	})
	if err != nil {
		s.metrics.Checkout(result(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, orders.ErrDatabase) {
			s.log.Error("checkout failed", zap.String("user_id", userID), zap.Error(err))
		}
		return orders.Order{}, err
	}

	s.carts.Record(v)
	s.metrics.Checkout("ok")
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.Int64("order.total_cents", o.TotalCents))
	s.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(o.Lines)),
		zap.Int64("total_cents", o.TotalCents))

	if key != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, userID, key, o.ID); err != nil {
			s.log.Warn("idempotency store failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

func (s *Service) order(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	err := s.store.View(ctx, func(ctx context.Context, r orders.Reader) error {
		var err error
		o, err = r.GetOrder(ctx, id)
		return err
	})
	return o, err
}

func result(err error) string {
	switch {
	case errors.Is(err, orders.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, orders.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, orders.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
