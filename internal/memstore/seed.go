package memstore

import (
	"context"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
)

// Seed loads a small demo catalog, used when the API runs with STORE=memory.
func Seed(ctx context.Context, s orders.Store) error {
	return s.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		sup, err := tx.CreateSupplier(ctx, orders.Supplier{Name: "Retro Parts Co", Email: "sales@retroparts.example"})
		if err != nil {
			return err
		}
		catalog := []orders.Product{
			{Name: "Refurbished Console", PriceCents: 120000, Stock: 2, SupplierID: &sup.ID},
			{Name: "Used Notebook", PriceCents: 250000, Stock: 12, SupplierID: &sup.ID},
			{Name: "Wireless Controller", PriceCents: 18000, Stock: 25},
			{Name: "HDMI Cable", PriceCents: 2500, Stock: 100},
		}
		for _, p := range catalog {
			if _, err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}
