package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Items      []ItemPrice `json:"items"`
	TotalCents int64       `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID     string      `json:"order_id"`
	From        Status      `json:"from"`
	To          Status      `json:"to"`
	StockAction StockAction `json:"stock_action"`
}

// OutboxEvent is an envelope waiting to be published on Topic.
type OutboxEvent struct {
	ID        int64
	Topic     string
	Key       string
	Envelope  Envelope
	CreatedAt time.Time
}

// Traced stamps the trace id of the span in ctx, if any, on the envelope.
func (e OutboxEvent) Traced(ctx context.Context) OutboxEvent {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		e.Envelope.TraceID = sc.TraceID().String()
	}
	return e
}

// NewEvent wraps payload in a v1 envelope correlated to orderID.
func NewEvent(eventType, producer, orderID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}

func OrderCreatedEvent(producer string, o Order) (OutboxEvent, error) {
	items := make([]ItemPrice, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, ItemPrice{ProductID: l.ProductID, Qty: l.Quantity, PriceCents: l.UnitPriceCents})
	}
	env, err := NewEvent(EventOrderCreated, producer, o.ID, OrderCreatedPayload{
		OrderID: o.ID, UserID: o.UserID, Items: items, TotalCents: o.TotalCents,
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{Topic: TopicOrderCreated, Key: o.ID, Envelope: env}, nil
}

func StatusChangedEvent(producer, orderID string, from, to Status) (OutboxEvent, error) {
	env, err := NewEvent(EventOrderStatusChanged, producer, orderID, OrderStatusChangedPayload{
		OrderID: orderID, From: from, To: to, StockAction: CompensationFor(from, to),
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{Topic: TopicOrderStatusChanged, Key: orderID, Envelope: env}, nil
}
