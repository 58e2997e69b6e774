package memstore

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/google/uuid"
)

func (t *tx) putProduct(p orders.Product) {
	prev, existed := t.s.products[p.ID]
	p.Supplier = nil
	t.s.products[p.ID] = p
	t.undo = append(t.undo, func() {
		if existed {
			t.s.products[p.ID] = prev
		} else {
			delete(t.s.products, p.ID)
		}
	})
}

func (t *tx) ReduceStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, orders.Validationf("quantity must be > 0")
	}
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = t.s.now()
	t.putProduct(p)
	return true, nil
}

func (t *tx) RestoreStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	p, ok := t.s.products[productID]
	if !ok {
		return orders.ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = t.s.now()
	t.putProduct(p)
	return nil
}

func (t *tx) CreateSupplier(ctx context.Context, s orders.Supplier) (orders.Supplier, error) {
	if s.Name == "" {
		return orders.Supplier{}, orders.Validationf("supplier name is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, dup := t.s.suppliers[s.ID]; dup {
		return orders.Supplier{}, orders.Validationf("supplier %s already exists", s.ID)
	}
	t.s.suppliers[s.ID] = s
	t.undo = append(t.undo, func() { delete(t.s.suppliers, s.ID) })
	return s, nil
}

func (t *tx) checkSupplier(id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := t.s.suppliers[*id]; !ok {
		return orders.ErrSupplierNotFound
	}
	return nil
}

func (t *tx) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	if p.Name == "" {
		return orders.Product{}, orders.Validationf("product name is required")
	}
	if p.Stock < 0 || p.PriceCents < 0 {
		return orders.Product{}, orders.Validationf("stock and price must be >= 0")
	}
	if err := t.checkSupplier(p.SupplierID); err != nil {
		return orders.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, dup := t.s.products[p.ID]; dup {
		return orders.Product{}, orders.Validationf("product %s already exists", p.ID)
	}
	now := t.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.putProduct(p)
	return t.withSupplier(p), nil
}

func (t *tx) PatchProduct(ctx context.Context, id string, patch orders.ProductPatch) (orders.Product, error) {
	if err := patch.Validate(); err != nil {
		return orders.Product{}, err
	}
	p, ok := t.s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	p = patch.Apply(p)
	if err := t.checkSupplier(p.SupplierID); err != nil {
		return orders.Product{}, err
	}
	p.UpdatedAt = t.s.now()
	t.putProduct(p)
	return t.withSupplier(p), nil
}

func (t *tx) setCart(k cartKey, qty int) {
	prev, existed := t.s.cart[k]
	if qty > 0 {
		t.s.cart[k] = qty
	} else {
		delete(t.s.cart, k)
	}
	t.undo = append(t.undo, func() {
		if existed {
			t.s.cart[k] = prev
		} else {
			delete(t.s.cart, k)
		}
	})
}

func (t *tx) UpsertCartEntry(ctx context.Context, e orders.CartEntry) error {
	if e.Quantity <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	if _, ok := t.s.products[e.ProductID]; !ok {
		return orders.ErrProductNotFound
	}
	t.setCart(cartKey{e.UserID, e.ProductID}, e.Quantity)
	return nil
}

func (t *tx) DeleteCartEntry(ctx context.Context, userID, productID string) error {
	t.setCart(cartKey{userID, productID}, 0)
	return nil
}

func (t *tx) ClearCart(ctx context.Context, userID string) error {
	for k := range t.s.cart {
		if k.userID == userID {
			t.setCart(k, 0)
		}
	}
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, o orders.Order) error {
	if _, dup := t.s.orders[o.ID]; dup {
		return fmt.Errorf("insert order %s: duplicate id", o.ID)
	}
	for _, l := range o.Lines {
		if _, ok := t.s.products[l.ProductID]; !ok {
			return orders.ErrProductNotFound
		}
	}
	lines := make([]orders.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.OrderID = o.ID
		l.ProductName = ""
		lines[i] = l
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = t.s.now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	o.Lines = nil
	t.s.orders[o.ID] = o
	t.s.lines[o.ID] = lines
	t.undo = append(t.undo, func() {
		delete(t.s.orders, o.ID)
		delete(t.s.lines, o.ID)
	})
	return nil
}

func (t *tx) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	// The write lock is already exclusive.
	return t.GetOrder(ctx, id)
}

func (t *tx) SetOrderStatus(ctx context.Context, id string, s orders.Status) error {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	prev := o
	o.Status = s
	o.UpdatedAt = t.s.now()
	t.s.orders[id] = o
	t.undo = append(t.undo, func() { t.s.orders[id] = prev })
	return nil
}

func (t *tx) EnqueueEvent(ctx context.Context, ev orders.OutboxEvent) error {
	t.s.nextEvent++
	ev.ID = t.s.nextEvent
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = t.s.now()
	}
	t.s.outbox = append(t.s.outbox, ev)
	t.undo = append(t.undo, func() {
		t.s.outbox = t.s.outbox[:len(t.s.outbox)-1]
		t.s.nextEvent--
	})
	return nil
}
