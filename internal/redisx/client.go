package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/fulfillment"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StatusCache keeps order status lookups off the database.
type StatusCache struct {
	RDB *redis.Client
}

func (c StatusCache) Get(ctx context.Context, orderID string) (fulfillment.StatusView, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fulfillment.StatusView{}, false, nil
	}
	if err != nil {
		return fulfillment.StatusView{}, false, err
	}
	var v fulfillment.StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return fulfillment.StatusView{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return v, true, nil
}

func (c StatusCache) Set(ctx context.Context, v fulfillment.StatusView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, v.OrderID), b, TTLStatusCache).Err()
}

func (c StatusCache) Invalidate(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// Idempotency maps a client's Idempotency-Key to the order it created.
type Idempotency struct {
	RDB *redis.Client
}

func (i Idempotency) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := i.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i Idempotency) Remember(ctx context.Context, userID, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, TTLIdempotency).Err()
}

// Dedup records processed event ids per consumer.
type Dedup struct {
	RDB      *redis.Client
	Consumer string
}

// Claim returns true the first time eventID is seen. SETNX makes the check
// and the mark one step, so two workers never both claim an event.
func (d Dedup) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Consumer, eventID), "1", TTLDedup).Result()
}

// Release forgets eventID so a failed handler can see it again.
func (d Dedup) Release(ctx context.Context, eventID string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Consumer, eventID)).Err()
}
