package cart

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-stock-orders/internal/memstore"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const user = "user-1"

func setup(t *testing.T, products ...orders.Product) (*Service, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		for _, p := range products {
			if _, err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))
	return NewService(s, zaptest.NewLogger(t), nil), s
}

func setStock(t *testing.T, s orders.Store, id string, n int) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.PatchProduct(ctx, id, orders.ProductPatch{Stock: orders.Some(n)})
		return err
	}))
}

func TestAddMergesWithinStock(t *testing.T) {
	svc, _ := setup(t, orders.Product{ID: "p1", Name: "Lamp", PriceCents: 250, Stock: 5})
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, user, "p1", 3))
	err := svc.Add(ctx, user, "p1", 4)
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)

	v, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity, "failed add leaves the cart unchanged")

	require.NoError(t, svc.Add(ctx, user, "p1", 2))
	v, err = svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Items[0].Quantity)
	assert.Equal(t, int64(1250), v.TotalCents)
}

func TestAddRejectsBadInput(t *testing.T) {
	svc, _ := setup(t, orders.Product{ID: "p1", Name: "Lamp", Stock: 5})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, user, "p1", 0), orders.ErrValidation)
	assert.ErrorIs(t, svc.Add(ctx, "", "p1", 1), orders.ErrValidation)
	assert.ErrorIs(t, svc.Add(ctx, user, "missing", 1), orders.ErrProductNotFound)
	assert.ErrorIs(t, svc.Add(ctx, user, "p1", 6), orders.ErrInsufficientStock)
}

func TestGetEvictsOutOfStockAndReportsName(t *testing.T) {
	svc, s := setup(t,
		orders.Product{ID: "p1", Name: "Sold Out Lamp", PriceCents: 100, Stock: 2},
		orders.Product{ID: "p2", Name: "Cable", PriceCents: 10, Stock: 9},
	)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, user, "p1", 2))
	require.NoError(t, svc.Add(ctx, user, "p2", 1))

	setStock(t, s, "p1", 0)

	v, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "p2", v.Items[0].ProductID)
	assert.Equal(t, []string{"Sold Out Lamp"}, v.Removed)
	assert.Contains(t, v.Message, "Sold Out Lamp")

	again, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, v.Items, again.Items)
	assert.Empty(t, again.Removed)
	assert.Empty(t, again.Message)
}

func TestGetClampsToStock(t *testing.T) {
	svc, s := setup(t, orders.Product{ID: "p1", Name: "Lamp", PriceCents: 100, Stock: 10})
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, user, "p1", 8))

	setStock(t, s, "p1", 3)

	v, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)
	assert.Empty(t, v.Removed)

	require.NoError(t, s.View(ctx, func(ctx context.Context, r orders.Reader) error {
		e, ok, err := r.GetCartEntry(ctx, user, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, e.Quantity, "clamp is persisted")
		return nil
	}))
}

func TestGetRecordsReconcileMetrics(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.CreateProduct(ctx, orders.Product{ID: "p1", Name: "Lamp", Stock: 4})
		return err
	}))
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(s, zaptest.NewLogger(t), m)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, user, "p1", 4))
	setStock(t, s, "p1", 0)

	_, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartReconciled.WithLabelValues("evicted")))
}

func TestUpdateAndRemove(t *testing.T) {
	svc, _ := setup(t, orders.Product{ID: "p1", Name: "Lamp", PriceCents: 100, Stock: 4})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Update(ctx, user, "p1", 2), orders.ErrCartItemNotFound)

	require.NoError(t, svc.Add(ctx, user, "p1", 1))
	require.NoError(t, svc.Update(ctx, user, "p1", 4))
	assert.ErrorIs(t, svc.Update(ctx, user, "p1", 5), orders.ErrInsufficientStock)

	v, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Items[0].Quantity)

	require.NoError(t, svc.Update(ctx, user, "p1", 0))
	v, err = svc.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, v.Empty())

	assert.NoError(t, svc.Remove(ctx, user, "p1"), "removing an absent entry is fine")
}
