package reports

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/fulfillment"
	"github.com/ariefcatur/go-stock-orders/internal/memstore"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type placed struct {
	id      string
	status  orders.Status
	at      time.Time
	product string
	qty     int
	price   int64
}

func fixture(t *testing.T, os ...placed) *memstore.Store {
	t.Helper()
	s := memstore.New(memstore.WithClock(clock))
	sup := "acme"
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		if _, err := tx.CreateSupplier(ctx, orders.Supplier{ID: sup, Name: "Acme", Email: "ops@acme.test"}); err != nil {
			return err
		}
		for _, p := range []orders.Product{
			{ID: "lamp", Name: "Lamp", PriceCents: 500, Stock: 2, SupplierID: &sup},
			{ID: "cable", Name: "Cable", PriceCents: 100, Stock: 40},
			{ID: "desk", Name: "Desk", PriceCents: 300, Stock: 0},
		} {
			if _, err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		for _, o := range os {
			line := orders.OrderLine{ProductID: o.product, Quantity: o.qty, UnitPriceCents: o.price}
			if err := tx.InsertOrder(ctx, orders.Order{
				ID: o.id, UserID: "u1", Status: o.status, TotalCents: line.AmountCents(),
				CreatedAt: o.at, Lines: []orders.OrderLine{line},
			}); err != nil {
				return err
			}
		}
		return nil
	}))
	return s
}

func march(day int) time.Time { return time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC) }

func TestDashboardCurrentMonth(t *testing.T) {
	s := fixture(t,
		placed{"o1", orders.StatusCompleted, march(2), "cable", 10, 100},
		placed{"o2", orders.StatusPending, march(10), "lamp", 1, 500},
		placed{"o3", orders.StatusCancelled, march(5), "lamp", 3, 100},
		placed{"o4", orders.StatusDelivered, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), "lamp", 9, 100},
	)
	svc := NewService(s, 5, 10, WithClock(clock))

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d.Month.From)
	assert.Equal(t, Totals{TotalSales: 1500, OrdersCount: 2}, d.Month.Totals)

	require.NotNil(t, d.BestSeller)
	assert.Equal(t, "cable", d.BestSeller.ProductID)
	assert.Equal(t, 10, d.BestSeller.TotalQuantity)
	assert.Equal(t, int64(1000), d.BestSeller.TotalRevenue)

	require.Len(t, d.LowStock, 2)
	assert.Equal(t, "desk", d.LowStock[0].ID)
	assert.Equal(t, "lamp", d.LowStock[1].ID)
	require.NotNil(t, d.LowStock[1].Supplier)
	assert.Equal(t, "ops@acme.test", d.LowStock[1].Supplier.Email)
}

func TestCancelledOrderLeavesDashboard(t *testing.T) {
	s := fixture(t, placed{"o1", orders.StatusPending, march(3), "cable", 10, 100})
	svc := NewService(s, 5, 10, WithClock(clock))
	ctx := context.Background()

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), d.Month.TotalSales)

	_, err = fulfillment.NewService(s, nil, "test", nil, nil).UpdateStatus(ctx, "o1", orders.StatusCancelled)
	require.NoError(t, err)

	d, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, d.Month.Totals)
	assert.Nil(t, d.BestSeller)

	require.NoError(t, s.View(ctx, func(ctx context.Context, r orders.Reader) error {
		p, err := r.GetProduct(ctx, "cable")
		assert.Equal(t, 50, p.Stock, "stock restored")
		return err
	}))
}

func TestDashboardEmptyStore(t *testing.T) {
	s := memstore.New(memstore.WithClock(clock))
	d, err := NewService(s, 5, 10, WithClock(clock)).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Totals{}, d.Month.Totals)
	assert.Nil(t, d.BestSeller)
	assert.NotNil(t, d.LowStock)
	assert.Empty(t, d.LowStock)
}

func TestSalesReport(t *testing.T) {
	s := fixture(t,
		placed{"o1", orders.StatusCompleted, march(2), "cable", 2, 100},
		placed{"o2", orders.StatusShipped, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "lamp", 1, 500},
		placed{"o3", orders.StatusPending, time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), "desk", 1, 300},
		placed{"o4", orders.StatusCancelled, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "lamp", 7, 500},
	)
	svc := NewService(s, 5, 10, WithClock(clock))
	ctx := context.Background()

	rep, err := svc.SalesReport(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rep.Monthly, 2)
	assert.Equal(t, MonthSummary{Period: "2026-03", Totals: Totals{TotalSales: 200, OrdersCount: 1}}, rep.Monthly[0])
	assert.Equal(t, "2026-01", rep.Monthly[1].Period, "months without sales are skipped")

	require.Len(t, rep.TopProducts, 3)
	assert.Equal(t, "cable", rep.TopProducts[0].ProductID)
	assert.Equal(t, "desk", rep.TopProducts[1].ProductID, "ties ordered by id")
	assert.Equal(t, 1, rep.TopProducts[2].TotalQuantity, "cancelled units excluded")

	for _, months := range []int{0, -1, MaxSalesMonths + 1} {
		_, err := svc.SalesReport(ctx, months)
		assert.ErrorIs(t, err, orders.ErrValidation, "months=%d", months)
	}
}

func TestFinancialReport(t *testing.T) {
	s := fixture(t,
		placed{"o1", orders.StatusCompleted, march(2), "cable", 10, 100},
		placed{"o2", orders.StatusPending, march(3), "lamp", 1, 500},
		placed{"o3", orders.StatusPending, march(4), "lamp", 1, 1},
		placed{"o4", orders.StatusCancelled, march(5), "lamp", 3, 100},
	)
	svc := NewService(s, 5, 10, WithClock(clock))
	ctx := context.Background()

	rep, err := svc.FinancialReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1501), rep.LifetimeRevenue)
	assert.True(t, decimal.RequireFromString("500.33").Equal(rep.AverageTicketCents), rep.AverageTicketCents.String())

	require.Len(t, rep.StatusTotals, len(orders.AllStatuses))
	byStatus := map[orders.Status]StatusTotal{}
	for _, st := range rep.StatusTotals {
		byStatus[st.Status] = st
	}
	assert.Equal(t, StatusTotal{Status: orders.StatusPending, OrdersCount: 2, TotalAmount: 501}, byStatus[orders.StatusPending])
	assert.Equal(t, StatusTotal{Status: orders.StatusCancelled, OrdersCount: 1, TotalAmount: 300}, byStatus[orders.StatusCancelled])
	assert.Equal(t, 0, byStatus[orders.StatusShipped].OrdersCount)

	avg, err := svc.AverageTicket(ctx)
	require.NoError(t, err)
	assert.True(t, rep.AverageTicketCents.Equal(avg))
}

func TestPeriodQueries(t *testing.T) {
	s := fixture(t,
		placed{"o1", orders.StatusCompleted, march(2), "cable", 1, 100},
		placed{"o2", orders.StatusCompleted, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), "lamp", 4, 500},
	)
	svc := NewService(s, 5, 10, WithClock(clock))
	ctx := context.Background()
	month := svc.CurrentMonth()

	tot, err := svc.MonthlyTotals(ctx, month)
	require.NoError(t, err)
	assert.Equal(t, Totals{TotalSales: 100, OrdersCount: 1}, tot)

	best, err := svc.BestSeller(ctx, month)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "cable", best.ProductID)

	best, err = svc.BestSeller(ctx, orders.Period{})
	require.NoError(t, err)
	assert.Equal(t, "lamp", best.ProductID)

	low, err := svc.LowStock(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "desk", low[0].ID)
}

func TestAverageTicketWithoutOrders(t *testing.T) {
	assert.True(t, averageTicket(nil).IsZero())
	assert.True(t, averageTicket([]orders.Order{{Status: orders.StatusCancelled, TotalCents: 10}}).IsZero())
}
