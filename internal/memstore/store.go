// Package memstore is an in-process orders.Store. Transactions are serialized
// behind one lock and undone from a log on failure, which gives the same
// all-or-nothing and no-oversell guarantees as the Postgres store for a
// single process.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
)

type cartKey struct{ userID, productID string }

type Store struct {
	mu sync.RWMutex

	suppliers map[string]orders.Supplier
	products  map[string]orders.Product
	cart      map[cartKey]int
	orders    map[string]orders.Order
	lines     map[string][]orders.OrderLine
	outbox    []orders.OutboxEvent
	nextEvent int64

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source for created/updated columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		suppliers: make(map[string]orders.Supplier),
		products:  make(map[string]orders.Product),
		cart:      make(map[cartKey]int),
		orders:    make(map[string]orders.Order),
		lines:     make(map[string][]orders.OrderLine),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()
	if err := fn(ctx, t); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, v orders.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &tx{s: s})
}

func (s *Store) PendingEvents(ctx context.Context, limit int) ([]orders.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []orders.OutboxEvent
	for _, ev := range s.outbox {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) MarkEventSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ev := range s.outbox {
		if ev.ID == id {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

// tx serves both InTx (write lock held) and View (read lock held).
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) withSupplier(p orders.Product) orders.Product {
	if p.SupplierID != nil {
		if sup, ok := t.s.suppliers[*p.SupplierID]; ok {
			p.Supplier = &sup
		}
	}
	return p
}

func (t *tx) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return t.withSupplier(p), nil
}

func (t *tx) CartLines(ctx context.Context, userID string) ([]orders.CartLine, error) {
	var out []orders.CartLine
	for k, qty := range t.s.cart {
		if k.userID != userID {
			continue
		}
		p, ok := t.s.products[k.productID]
		if !ok {
			continue
		}
		out = append(out, orders.CartLine{
			CartEntry:  orders.CartEntry{UserID: userID, ProductID: k.productID, Quantity: qty},
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Stock:      p.Stock,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (t *tx) GetCartEntry(ctx context.Context, userID, productID string) (orders.CartEntry, bool, error) {
	qty, ok := t.s.cart[cartKey{userID, productID}]
	if !ok {
		return orders.CartEntry{}, false, nil
	}
	return orders.CartEntry{UserID: userID, ProductID: productID, Quantity: qty}, true, nil
}

func (t *tx) orderWithLines(o orders.Order) orders.Order {
	src := t.s.lines[o.ID]
	o.Lines = make([]orders.OrderLine, 0, len(src))
	for _, l := range src {
		if p, ok := t.s.products[l.ProductID]; ok {
			l.ProductName = p.Name
		}
		o.Lines = append(o.Lines, l)
	}
	return o
}

func (t *tx) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return t.orderWithLines(o), nil
}

func (t *tx) OrderLines(ctx context.Context, orderID string) ([]orders.OrderLine, error) {
	o, err := t.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

func (t *tx) ListOrders(ctx context.Context, userID string) ([]orders.Order, error) {
	out := make([]orders.Order, 0)
	for _, o := range t.s.orders {
		if userID != "" && o.UserID != userID {
			continue
		}
		out = append(out, t.orderWithLines(o))
	}
	sortNewestFirst(out)
	return out, nil
}

func (t *tx) OrdersBetween(ctx context.Context, p orders.Period) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range t.s.orders {
		if p.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (t *tx) SoldLinesBetween(ctx context.Context, p orders.Period) ([]orders.SoldLine, error) {
	os, _ := t.OrdersBetween(ctx, p)
	var out []orders.SoldLine
	for _, o := range os {
		for _, l := range t.orderWithLines(o).Lines {
			out = append(out, orders.SoldLine{OrderLine: l, Status: o.Status, CreatedAt: o.CreatedAt})
		}
	}
	return out, nil
}

func (t *tx) LowStockProducts(ctx context.Context, threshold, limit int) ([]orders.Product, error) {
	var out []orders.Product
	for _, p := range t.s.products {
		if p.Stock <= threshold {
			out = append(out, t.withSupplier(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(os []orders.Order) {
	sort.Slice(os, func(i, j int) bool {
		if !os[i].CreatedAt.Equal(os[j].CreatedAt) {
			return os[i].CreatedAt.After(os[j].CreatedAt)
		}
		return os[i].ID > os[j].ID
	})
}
