package cart

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-stock-orders/internal/inventory"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-stock-orders/internal/cart")

// View is a cart after reconciliation against live stock.
type View struct {
	Items      []orders.CartLine `json:"items"`
	Removed    []string          `json:"removed_items"`
	Message    string            `json:"message,omitempty"`
	TotalCents int64             `json:"total_cents"`

	clamped int
}

func (v View) Empty() bool { return len(v.Items) == 0 }

// Entries returns the surviving items as order lines priced at the current
// product price.
func (v View) Entries() []orders.OrderLine {
	out := make([]orders.OrderLine, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, orders.OrderLine{
			ProductID:      it.ProductID,
			ProductName:    it.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: it.PriceCents,
		})
	}
	return out
}

type Service struct {
	store   orders.Store
	ledger  inventory.Ledger
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(store orders.Store, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, metrics: m}
}

// Get returns the user's cart, evicting entries whose product is out of
// stock and clamping entries that exceed it. A second call against
// unchanged stock changes nothing.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	if userID == "" {
		return View{}, orders.Validationf("user id is required")
	}
	ctx, span := tracer.Start(ctx, "cart.Get")
	defer span.End()

	var v View
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		v, err = s.Reconcile(ctx, tx, userID)
		return err
	})
	if err != nil {
		return View{}, err
	}
	s.Record(v)
	span.SetAttributes(attribute.Int("cart.items", len(v.Items)), attribute.Int("cart.removed", len(v.Removed)))
	return v, nil
}

// Reconcile is Get's body for callers that already hold a transaction.
func (s *Service) Reconcile(ctx context.Context, tx orders.Tx, userID string) (View, error) {
	lines, err := tx.CartLines(ctx, userID)
	if err != nil {
		return View{}, err
	}

	v := View{Items: make([]orders.CartLine, 0, len(lines)), Removed: []string{}}
	for _, l := range lines {
		switch {
		case l.Stock <= 0:
			if err := tx.DeleteCartEntry(ctx, userID, l.ProductID); err != nil {
				return View{}, err
			}
			v.Removed = append(v.Removed, l.Name)
			continue
		case l.Quantity > l.Stock:
			l.Quantity = l.Stock
			if err := tx.UpsertCartEntry(ctx, l.CartEntry); err != nil {
				return View{}, err
			}
			v.clamped++
		}
		v.Items = append(v.Items, l)
		v.TotalCents += int64(l.Quantity) * l.PriceCents
	}
	if len(v.Removed) > 0 {
		v.Message = "removed from cart (out of stock): " + strings.Join(v.Removed, ", ")
	}
	return v, nil
}

// Record counts the changes a committed reconciliation made.
func (s *Service) Record(v View) {
	s.metrics.CartChanged("evicted", len(v.Removed))
	s.metrics.CartChanged("clamped", v.clamped)
	if len(v.Removed) > 0 || v.clamped > 0 {
		s.log.Info("cart reconciled",
			zap.Strings("removed", v.Removed),
			zap.Int("clamped", v.clamped))
	}
}

// Add merges qty into the user's entry for productID. Both qty alone and the
// merged quantity must fit in stock; on failure the cart is unchanged.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) error {
	if err := validEntry(userID, productID); err != nil {
		return err
	}
	if qty <= 0 {
		return orders.Validationf("quantity must be > 0")
	}
	ctx, span := tracer.Start(ctx, "cart.Add")
	defer span.End()

	return s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if err := s.ledger.Validate(ctx, tx, productID, qty); err != nil {
			return err
		}
		e, found, err := tx.GetCartEntry(ctx, userID, productID)
		if err != nil {
			return err
		}
		total := qty
		if found {
			total += e.Quantity
			if err := s.ledger.Validate(ctx, tx, productID, total); err != nil {
				return err
			}
		}
		return tx.UpsertCartEntry(ctx, orders.CartEntry{UserID: userID, ProductID: productID, Quantity: total})
	})
}

// Update sets the entry's quantity; qty <= 0 removes it.
func (s *Service) Update(ctx context.Context, userID, productID string, qty int) error {
	if err := validEntry(userID, productID); err != nil {
		return err
	}
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	ctx, span := tracer.Start(ctx, "cart.Update")
	defer span.End()

	return s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, found, err := tx.GetCartEntry(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !found {
			return orders.ErrCartItemNotFound
		}
		if err := s.ledger.Validate(ctx, tx, productID, qty); err != nil {
			return err
		}
		return tx.UpsertCartEntry(ctx, orders.CartEntry{UserID: userID, ProductID: productID, Quantity: qty})
	})
}

// Remove is idempotent.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if err := validEntry(userID, productID); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.DeleteCartEntry(ctx, userID, productID)
	})
}

func validEntry(userID, productID string) error {
	if userID == "" {
		return orders.Validationf("user id is required")
	}
	if productID == "" {
		return orders.Validationf("product id is required")
	}
	return nil
}
