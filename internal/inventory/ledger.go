package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
)

// Ledger is the only writer of products.stock. Every call runs inside the
// caller's transaction.
type Ledger struct{}

// Reduce applies stock -= qty only when stock >= qty. ok is false when the
// product is missing or short; nothing changed in that case.
func (Ledger) Reduce(ctx context.Context, tx orders.Tx, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, orders.Validationf("quantity must be > 0")
	}
	return tx.ReduceStock(ctx, productID, qty)
}

// Restore is unconditional; it only ever compensates an earlier Reduce.
func (Ledger) Restore(ctx context.Context, tx orders.Tx, productID string, qty int) error {
	if qty <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	return tx.RestoreStock(ctx, productID, qty)
}

// Validate fails with a *orders.StockError when the product is missing or
// holds fewer than qty units.
func (Ledger) Validate(ctx context.Context, r orders.Reader, productID string, qty int) error {
	p, err := r.GetProduct(ctx, productID)
	if errors.Is(err, orders.ErrProductNotFound) {
		return orders.MissingProduct(productID, qty)
	}
	if err != nil {
		return err
	}
	if p.Stock < qty {
		return orders.NewStockError(orders.StockShortage{
			ProductID: p.ID, Name: p.Name, Required: qty, Available: p.Stock,
		})
	}
	return nil
}

// Shortages checks every line against live stock and returns all lines that
// cannot be covered, so callers can report the whole set at once.
func (l Ledger) Shortages(ctx context.Context, r orders.Reader, lines []orders.OrderLine) ([]orders.StockShortage, error) {
	var out []orders.StockShortage
	for _, ln := range byProduct(lines) {
		err := l.Validate(ctx, r, ln.ProductID, ln.Quantity)
		var se *orders.StockError
		switch {
		case err == nil:
		case errors.As(err, &se):
			out = append(out, se.Shortages...)
		default:
			return nil, err
		}
	}
	return out, nil
}

// ReduceLines reduces every line in product id order. The first line that
// cannot be reduced is returned as a shortage; the caller must roll back.
func (l Ledger) ReduceLines(ctx context.Context, tx orders.Tx, lines []orders.OrderLine) (*orders.StockShortage, error) {
	for _, ln := range byProduct(lines) {
		ok, err := l.Reduce(ctx, tx, ln.ProductID, ln.Quantity)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		s := orders.StockShortage{ProductID: ln.ProductID, Name: ln.ProductName, Required: ln.Quantity}
		if p, err := tx.GetProduct(ctx, ln.ProductID); err == nil {
			s.Name, s.Available = p.Name, p.Stock
		}
		return &s, nil
	}
	return nil, nil
}

func (l Ledger) RestoreLines(ctx context.Context, tx orders.Tx, lines []orders.OrderLine) error {
	for _, ln := range byProduct(lines) {
		if err := l.Restore(ctx, tx, ln.ProductID, ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Units sums the quantities of lines.
func Units(lines []orders.OrderLine) int {
	n := 0
	for _, ln := range lines {
		n += ln.Quantity
	}
	return n
}

// byProduct merges lines per product and sorts them by id, the lock order
// shared by every multi-product write.
func byProduct(lines []orders.OrderLine) []orders.OrderLine {
	idx := make(map[string]int, len(lines))
	out := make([]orders.OrderLine, 0, len(lines))
	for _, ln := range lines {
		if i, ok := idx[ln.ProductID]; ok {
			out[i].Quantity += ln.Quantity
			continue
		}
		idx[ln.ProductID] = len(out)
		out = append(out, ln)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
