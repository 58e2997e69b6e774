// Package catalog holds the product and supplier writes the order lifecycle
// depends on: seeding stock and external stock corrections.
package catalog

import (
	"context"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.uber.org/zap"
)

type Service struct {
	store orders.Store
	log   *zap.Logger
}

func NewService(store orders.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Product(ctx context.Context, id string) (orders.Product, error) {
	var p orders.Product
	err := s.store.View(ctx, func(ctx context.Context, r orders.Reader) error {
		var err error
		p, err = r.GetProduct(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) CreateSupplier(ctx context.Context, sup orders.Supplier) (orders.Supplier, error) {
	var out orders.Supplier
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.CreateSupplier(ctx, sup)
		return err
	})
	return out, err
}

func (s *Service) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	var out orders.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.CreateProduct(ctx, p)
		return err
	})
	return out, err
}

// Patch applies a partial update. Setting stock here is an external stock
// change; carts holding the product are reconciled on their next read.
func (s *Service) Patch(ctx context.Context, id string, patch orders.ProductPatch) (orders.Product, error) {
	if err := patch.Validate(); err != nil {
		return orders.Product{}, err
	}
	var out orders.Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.PatchProduct(ctx, id, patch)
		return err
	})
	if err != nil {
		return orders.Product{}, err
	}
	if patch.Stock.Set {
		s.log.Info("product stock set", zap.String("product_id", id), zap.Int("stock", out.Stock))
	}
	return out, nil
}
