package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productSelect = `
	SELECT p.id, p.name, p.price_cents, p.stock, p.supplier_id, p.created_at, p.updated_at,
	       s.id, s.name, s.email
	FROM products p
	LEFT JOIN suppliers s ON s.id = p.supplier_id`

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	var supID, supName, supEmail *string
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.SupplierID, &p.CreatedAt, &p.UpdatedAt,
		&supID, &supName, &supEmail); err != nil {
		return orders.Product{}, err
	}
	if supID != nil {
		p.Supplier = &orders.Supplier{ID: *supID}
		if supName != nil {
			p.Supplier.Name = *supName
		}
		if supEmail != nil {
			p.Supplier.Email = *supEmail
		}
	}
	return p, nil
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, orders.DBError("get product", err)
	}
	return p, nil
}

func (t *pgTx) LowStockProducts(ctx context.Context, threshold, limit int) ([]orders.Product, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := t.q.Query(ctx, productSelect+`
		WHERE p.stock <= $1
		ORDER BY p.stock ASC, p.id
		LIMIT $2`, threshold, lim)
	if err != nil {
		return nil, orders.DBError("low stock products", err)
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, orders.DBError("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, orders.DBError("low stock products", err)
	}
	return out, nil
}

// ReduceStock is a single conditional write; concurrent callers serialize on
// the row lock and the loser re-evaluates stock >= qty after the winner commits.
func (t *pgTx) ReduceStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, orders.Validationf("quantity must be > 0")
	}
	ct, err := t.q.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, orders.DBError("reduce stock", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) RestoreStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	ct, err := t.q.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return orders.DBError("restore stock", err)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrProductNotFound
	}
	return nil
}

func (t *pgTx) CreateSupplier(ctx context.Context, s orders.Supplier) (orders.Supplier, error) {
	if s.Name == "" {
		return orders.Supplier{}, orders.Validationf("supplier name is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx, `INSERT INTO suppliers(id, name, email) VALUES ($1, $2, $3)`, s.ID, s.Name, s.Email)
	if err != nil {
		return orders.Supplier{}, mapErr("create supplier", err, nil)
	}
	return s, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	if p.Name == "" {
		return orders.Product{}, orders.Validationf("product name is required")
	}
	if p.Stock < 0 || p.PriceCents < 0 {
		return orders.Product{}, orders.Validationf("stock and price must be >= 0")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO products(id, name, price_cents, stock, supplier_id)
		VALUES ($1, $2, $3, $4, $5)`, p.ID, p.Name, p.PriceCents, p.Stock, p.SupplierID)
	if err != nil {
		return orders.Product{}, mapErr("create product", err, orders.ErrSupplierNotFound)
	}
	return t.GetProduct(ctx, p.ID)
}

func (t *pgTx) PatchProduct(ctx context.Context, id string, patch orders.ProductPatch) (orders.Product, error) {
	if err := patch.Validate(); err != nil {
		return orders.Product{}, err
	}
	args := []any{id}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name.Set {
		set("name", patch.Name.Value)
	}
	if patch.PriceCents.Set {
		set("price_cents", patch.PriceCents.Value)
	}
	if patch.Stock.Set {
		set("stock", patch.Stock.Value)
	}
	if patch.SupplierID.Set {
		if patch.SupplierID.Null {
			set("supplier_id", nil)
		} else {
			set("supplier_id", patch.SupplierID.Value)
		}
	}

	ct, err := t.q.Exec(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+`, updated_at = now() WHERE id = $1`, args...)
	if err != nil {
		return orders.Product{}, mapErr("patch product", err, orders.ErrSupplierNotFound)
	}
	if ct.RowsAffected() != 1 {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return t.GetProduct(ctx, id)
}
