package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-stock-orders/internal/memstore"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s orders.Store, stock map[string]int) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		for id, n := range stock {
			if _, err := tx.CreateProduct(ctx, orders.Product{ID: id, Name: "product " + id, PriceCents: 100, Stock: n}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func stockOf(t *testing.T, s orders.Store, id string) int {
	t.Helper()
	var n int
	require.NoError(t, s.View(context.Background(), func(ctx context.Context, r orders.Reader) error {
		p, err := r.GetProduct(ctx, id)
		n = p.Stock
		return err
	}))
	return n
}

func TestLedgerValidate(t *testing.T) {
	s := memstore.New()
	seed(t, s, map[string]int{"a": 3})
	var l Ledger

	require.NoError(t, s.View(context.Background(), func(ctx context.Context, r orders.Reader) error {
		assert.NoError(t, l.Validate(ctx, r, "a", 3))

		err := l.Validate(ctx, r, "a", 4)
		assert.ErrorIs(t, err, orders.ErrInsufficientStock)
		var se *orders.StockError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, orders.StockShortage{ProductID: "a", Name: "product a", Required: 4, Available: 3}, se.Shortages[0])

		err = l.Validate(ctx, r, "nope", 1)
		assert.ErrorIs(t, err, orders.ErrInsufficientStock)
		assert.ErrorIs(t, err, orders.ErrProductNotFound)
		return nil
	}))
}

func TestLedgerReduceRestore(t *testing.T) {
	s := memstore.New()
	seed(t, s, map[string]int{"a": 3})
	var l Ledger

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		ok, err := l.Reduce(ctx, tx, "a", 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.Reduce(ctx, tx, "a", 2)
		require.NoError(t, err)
		assert.False(t, ok, "stock must not go negative")

		_, err = l.Reduce(ctx, tx, "a", 0)
		assert.ErrorIs(t, err, orders.ErrValidation)

		return l.Restore(ctx, tx, "a", 5)
	}))
	assert.Equal(t, 6, stockOf(t, s, "a"))
}

func TestLedgerShortagesReportsEveryLine(t *testing.T) {
	s := memstore.New()
	seed(t, s, map[string]int{"a": 1, "b": 5, "c": 0})
	var l Ledger

	lines := []orders.OrderLine{
		{ProductID: "c", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 5},
	}
	require.NoError(t, s.View(context.Background(), func(ctx context.Context, r orders.Reader) error {
		got, err := l.Shortages(ctx, r, lines)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ProductID)
		assert.Equal(t, "c", got[1].ProductID)
		return nil
	}))
}

func TestLedgerReduceLinesStopsAtFirstShortage(t *testing.T) {
	s := memstore.New()
	seed(t, s, map[string]int{"a": 5, "b": 1})
	var l Ledger

	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		short, err := l.ReduceLines(ctx, tx, []orders.OrderLine{
			{ProductID: "b", Quantity: 2},
			{ProductID: "a", Quantity: 2},
		})
		require.NoError(t, err)
		require.NotNil(t, short)
		assert.Equal(t, "b", short.ProductID)
		assert.Equal(t, 1, short.Available)
		return orders.NewStockError(*short)
	})
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, s, "a"), "rolled back")
	assert.Equal(t, 1, stockOf(t, s, "b"))
}

func TestByProductMergesAndSorts(t *testing.T) {
	got := byProduct([]orders.OrderLine{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProductID)
	assert.Equal(t, 4, got[1].Quantity)
	assert.Equal(t, 6, Units(got))
}
