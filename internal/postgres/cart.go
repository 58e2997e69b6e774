package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/jackc/pgx/v5"
)

// CartLines locks the user's cart rows in write transactions so two requests
// for the same cart reconcile one after the other.
func (t *pgTx) CartLines(ctx context.Context, userID string) ([]orders.CartLine, error) {
	rows, err := t.q.Query(ctx, `
		SELECT c.user_id, c.product_id, c.quantity, p.name, p.price_cents, p.stock
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id`+t.forUpdate("FOR UPDATE OF c"), userID)
	if err != nil {
		return nil, orders.DBError("cart lines", err)
	}
	defer rows.Close()

	var out []orders.CartLine
	for rows.Next() {
		var l orders.CartLine
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.Name, &l.PriceCents, &l.Stock); err != nil {
			return nil, orders.DBError("scan cart line", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError("cart lines", err)
	}
	return out, nil
}

func (t *pgTx) GetCartEntry(ctx context.Context, userID, productID string) (orders.CartEntry, bool, error) {
	e := orders.CartEntry{UserID: userID, ProductID: productID}
	err := t.q.QueryRow(ctx, `
		SELECT quantity FROM cart_items
		WHERE user_id = $1 AND product_id = $2`+t.forUpdate("FOR UPDATE"), userID, productID).Scan(&e.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartEntry{}, false, nil
	}
	if err != nil {
		return orders.CartEntry{}, false, orders.DBError("get cart entry", err)
	}
	return e, true, nil
}

func (t *pgTx) UpsertCartEntry(ctx context.Context, e orders.CartEntry) error {
	if e.Quantity <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		e.UserID, e.ProductID, e.Quantity)
	return mapErr("upsert cart entry", err, orders.ErrProductNotFound)
}

func (t *pgTx) DeleteCartEntry(ctx context.Context, userID, productID string) error {
	_, err := t.q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	return orders.DBError("delete cart entry", err)
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return orders.DBError("clear cart", err)
}
