package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Every statement is idempotent so Migrate can run on each boot.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// supplier link was added after the first release
	`ALTER TABLE products ADD COLUMN IF NOT EXISTS supplier_id TEXT REFERENCES suppliers(id) ON DELETE SET NULL`,
	`CREATE INDEX IF NOT EXISTS idx_products_stock ON products(stock)`,

	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id    TEXT NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending'
		            CHECK (status IN ('pending','processing','shipped','delivered','completed','cancelled')),
		total_cents BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id  TEXT NOT NULL REFERENCES products(id),
		qty         INTEGER NOT NULL CHECK (qty > 0),
		price_cents BIGINT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id         BIGSERIAL PRIMARY KEY,
		event_id   TEXT NOT NULL UNIQUE,
		topic      TEXT NOT NULL,
		key        TEXT NOT NULL,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(id) WHERE sent_at IS NULL`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
