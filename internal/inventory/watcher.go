package inventory

import (
	"context"
	"errors"

	kafkax "github.com/ariefcatur/go-stock-orders/internal/kafka"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper claims an event id once per consumer.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Watcher raises low stock alerts for products an order just drew down.
type Watcher struct {
	store     orders.Store
	dedup     Deduper
	threshold int
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// NewWatcher: dedup may be nil, in which case redelivered events alert again.
func NewWatcher(store orders.Store, dedup Deduper, threshold int, log *zap.Logger, m *metrics.Metrics) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{store: store, dedup: dedup, threshold: threshold, log: log, metrics: m}
}

// HandleOrderCreated is the kafka handler for order.created.
func (w *Watcher) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	if w.dedup != nil {
		first, err := w.dedup.Claim(ctx, env.EventID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err == nil {
		ids := make([]string, 0, len(p.Items))
		for _, it := range p.Items {
			ids = append(ids, it.ProductID)
		}
		_, err = w.Check(ctx, p.OrderID, ids)
	}
	if err != nil && w.dedup != nil {
		if rerr := w.dedup.Release(ctx, env.EventID); rerr != nil {
			w.log.Warn("dedup release failed", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
	}
	return err
}

// Check returns the products among productIDs at or below the threshold and
// logs one alert per product. Products deleted since the order are skipped.
func (w *Watcher) Check(ctx context.Context, orderID string, productIDs []string) ([]orders.Product, error) {
	var low []orders.Product
	err := w.store.View(ctx, func(ctx context.Context, r orders.Reader) error {
		for _, id := range productIDs {
			p, err := r.GetProduct(ctx, id)
			if errors.Is(err, orders.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if p.Stock <= w.threshold {
				low = append(low, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range low {
		w.metrics.LowStock()
		fields := []zap.Field{
			zap.String("order_id", orderID),
			zap.String("product_id", p.ID),
			zap.String("name", p.Name),
			zap.Int("stock", p.Stock),
			zap.Int("threshold", w.threshold),
		}
		if p.Supplier != nil {
			fields = append(fields, zap.String("supplier", p.Supplier.Name), zap.String("supplier_email", p.Supplier.Email))
		}
		w.log.Warn("low stock", fields...)
	}
	return low, nil
}
