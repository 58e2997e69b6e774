package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/segmentio/kafka-go"
)

// Producer writes synchronously so the outbox only marks an event sent once
// every replica acknowledged it.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	})
}

// PublishEvent sends an outbox event keyed by order id.
func (p *Producer) PublishEvent(ctx context.Context, ev orders.OutboxEvent) error {
	b, err := EncodeEnvelope(ev.Envelope)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ev.Topic, orders.PartitionKey(ev.Key), b, EventHeaders(ev.Envelope)...)
}

func (p *Producer) Close() error { return p.w.Close() }

func EventHeaders(env orders.Envelope) []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(env.EventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	}
}
