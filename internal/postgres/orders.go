package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/jackc/pgx/v5"
)

const orderSelect = `SELECT id, user_id, status, total_cents, created_at, updated_at FROM orders`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	o.Status = orders.Status(status)
	return o, nil
}

// tsArg maps an open period bound to NULL.
func tsArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (t *pgTx) getOrder(ctx context.Context, id, lock string) (orders.Order, error) {
	o, err := scanOrder(t.q.QueryRow(ctx, orderSelect+` WHERE id = $1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, orders.DBError("get order", err)
	}
	if o.Lines, err = t.linesFor(ctx, []string{o.ID}); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func (t *pgTx) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	return t.getOrder(ctx, id, "")
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	return t.getOrder(ctx, id, t.forUpdate("FOR UPDATE"))
}

func (t *pgTx) OrderLines(ctx context.Context, orderID string) ([]orders.OrderLine, error) {
	return t.linesFor(ctx, []string{orderID})
}

func (t *pgTx) linesFor(ctx context.Context, orderIDs []string) ([]orders.OrderLine, error) {
	rows, err := t.q.Query(ctx, `
		SELECT oi.order_id, oi.product_id, p.name, oi.qty, oi.price_cents
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.product_id`, orderIDs)
	if err != nil {
		return nil, orders.DBError("order lines", err)
	}
	defer rows.Close()

	out := make([]orders.OrderLine, 0)
	for rows.Next() {
		var l orders.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, orders.DBError("scan order line", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError("order lines", err)
	}
	return out, nil
}

func (t *pgTx) queryOrders(ctx context.Context, op, sql string, args ...any) ([]orders.Order, error) {
	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, orders.DBError(op, err)
	}
	defer rows.Close()

	out := make([]orders.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, orders.DBError(op, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError(op, err)
	}
	return out, nil
}

func (t *pgTx) ListOrders(ctx context.Context, userID string) ([]orders.Order, error) {
	os, err := t.queryOrders(ctx, "list orders", orderSelect+`
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil || len(os) == 0 {
		return os, err
	}

	ids := make([]string, len(os))
	for i, o := range os {
		ids[i] = o.ID
	}
	lines, err := t.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[string][]orders.OrderLine, len(os))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range os {
		os[i].Lines = byOrder[os[i].ID]
		if os[i].Lines == nil {
			os[i].Lines = []orders.OrderLine{}
		}
	}
	return os, nil
}

func (t *pgTx) OrdersBetween(ctx context.Context, p orders.Period) ([]orders.Order, error) {
	return t.queryOrders(ctx, "orders between", orderSelect+`
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC, id DESC`, tsArg(p.From), tsArg(p.To))
}

func (t *pgTx) SoldLinesBetween(ctx context.Context, p orders.Period) ([]orders.SoldLine, error) {
	rows, err := t.q.Query(ctx, `
		SELECT oi.order_id, oi.product_id, pr.name, oi.qty, oi.price_cents, o.status, o.created_at
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products pr ON pr.id = oi.product_id
		WHERE ($1::timestamptz IS NULL OR o.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR o.created_at <= $2)
		ORDER BY o.created_at, oi.order_id, oi.product_id`, tsArg(p.From), tsArg(p.To))
	if err != nil {
		return nil, orders.DBError("sold lines", err)
	}
	defer rows.Close()

	var out []orders.SoldLine
	for rows.Next() {
		var l orders.SoldLine
		var status string
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPriceCents, &status, &l.CreatedAt); err != nil {
			return nil, orders.DBError("scan sold line", err)
		}
		l.Status = orders.Status(status)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError("sold lines", err)
	}
	return out, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o orders.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.CreatedAt)
	if err != nil {
		return mapErr("insert order", err, nil)
	}
	for _, l := range o.Lines {
		if _, err := t.q.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, l.ProductID, l.Quantity, l.UnitPriceCents); err != nil {
			return mapErr("insert order item", err, orders.ErrProductNotFound)
		}
	}
	return nil
}

func (t *pgTx) SetOrderStatus(ctx context.Context, id string, s orders.Status) error {
	ct, err := t.q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(s))
	if err != nil {
		return mapErr("set order status", err, nil)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) EnqueueEvent(ctx context.Context, ev orders.OutboxEvent) error {
	payload, err := json.Marshal(ev.Envelope)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO outbox(event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		ev.Envelope.EventID, ev.Topic, ev.Key, payload)
	return mapErr("enqueue event", err, nil)
}
