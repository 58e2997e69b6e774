// Package outbox publishes events that order transactions left in the outbox.
package outbox

import (
	"context"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishEvent(ctx context.Context, ev orders.OutboxEvent) error
}

type Relay struct {
	store    orders.OutboxStore
	pub      Publisher
	interval time.Duration
	batch    int
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewRelay(store orders.OutboxStore, pub Publisher, interval time.Duration, batch int, log *zap.Logger, m *metrics.Metrics) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{store: store, pub: pub, interval: interval, batch: batch, log: log, metrics: m}
}

// Run drains the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("outbox flush failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Flush publishes one batch in insertion order and stops at the first
// publish failure, so events of one order never overtake each other. The
// failed event stays pending for the next tick.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	evs, err := r.store.PendingEvents(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ev := range evs {
		if err := r.pub.PublishEvent(ctx, ev); err != nil {
			r.metrics.Outbox(ev.Topic, "failed")
			return sent, err
		}
		if err := r.store.MarkEventSent(ctx, ev.ID); err != nil {
			return sent, err
		}
		r.metrics.Outbox(ev.Topic, "published")
		r.log.Debug("event published",
			zap.String("topic", ev.Topic),
			zap.String("event_id", ev.Envelope.EventID),
			zap.String("key", ev.Key))
		sent++
	}
	return sent, nil
}
