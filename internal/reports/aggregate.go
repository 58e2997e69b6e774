package reports

import (
	"sort"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/shopspring/decimal"
)

const monthLayout = "2006-01"

type Totals struct {
	TotalSales  int64 `json:"total_sales"`
	OrdersCount int   `json:"orders_count"`
}

type MonthSummary struct {
	Period string `json:"period"`
	Totals
}

type ProductSales struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	TotalQuantity int    `json:"total_quantity"`
	TotalRevenue  int64  `json:"total_revenue"`
}

type StatusTotal struct {
	Status      orders.Status `json:"status"`
	OrdersCount int           `json:"orders_count"`
	TotalAmount int64         `json:"total_amount"`
}

// totals sums non-cancelled orders.
func totals(os []orders.Order) Totals {
	var t Totals
	for _, o := range os {
		if o.Status.Cancelled() {
			continue
		}
		t.TotalSales += o.TotalCents
		t.OrdersCount++
	}
	return t
}

// monthly groups non-cancelled orders by UTC calendar month, newest first,
// keeping at most limit months.
func monthly(os []orders.Order, limit int) []MonthSummary {
	byPeriod := make(map[string]*MonthSummary)
	for _, o := range os {
		if o.Status.Cancelled() {
			continue
		}
		p := o.CreatedAt.UTC().Format(monthLayout)
		m, ok := byPeriod[p]
		if !ok {
			m = &MonthSummary{Period: p}
			byPeriod[p] = m
		}
		m.TotalSales += o.TotalCents
		m.OrdersCount++
	}
	out := make([]MonthSummary, 0, len(byPeriod))
	for _, m := range byPeriod {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// topProducts ranks products of non-cancelled orders by units sold. Ties
// fall back to product id so results are stable.
func topProducts(lines []orders.SoldLine, limit int) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, l := range lines {
		if l.Status.Cancelled() {
			continue
		}
		ps, ok := byProduct[l.ProductID]
		if !ok {
			ps = &ProductSales{ProductID: l.ProductID, Name: l.ProductName}
			byProduct[l.ProductID] = ps
		}
		ps.TotalQuantity += l.Quantity
		ps.TotalRevenue += l.AmountCents()
	}
	out := make([]ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func bestSeller(lines []orders.SoldLine) *ProductSales {
	top := topProducts(lines, 1)
	if len(top) == 0 {
		return nil
	}
	return &top[0]
}

// statusTotals covers every status, cancelled included, in lifecycle order.
func statusTotals(os []orders.Order) []StatusTotal {
	idx := make(map[orders.Status]*StatusTotal, len(orders.AllStatuses))
	out := make([]StatusTotal, len(orders.AllStatuses))
	for i, s := range orders.AllStatuses {
		out[i].Status = s
		idx[s] = &out[i]
	}
	for _, o := range os {
		st, ok := idx[o.Status]
		if !ok {
			continue
		}
		st.OrdersCount++
		st.TotalAmount += o.TotalCents
	}
	return out
}

// averageTicket is the mean total of non-cancelled orders in cents, rounded
// to two places. Zero when there are none.
func averageTicket(os []orders.Order) decimal.Decimal {
	t := totals(os)
	if t.OrdersCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(t.TotalSales).
		Div(decimal.NewFromInt(int64(t.OrdersCount))).
		Round(2)
}
