package reports

import (
	"context"
	"time"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-stock-orders/internal/reports")

const (
	DefaultSalesMonths = 6
	MaxSalesMonths     = 120
	topProductsLimit   = 5
)

type MonthTotals struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Totals
}

type Dashboard struct {
	Month      MonthTotals      `json:"month"`
	BestSeller *ProductSales    `json:"best_seller"`
	LowStock   []orders.Product `json:"low_stock"`
}

type SalesReport struct {
	Monthly     []MonthSummary `json:"monthly"`
	TopProducts []ProductSales `json:"top_products"`
}

type FinancialReport struct {
	LifetimeRevenue    int64           `json:"lifetime_revenue"`
	AverageTicketCents decimal.Decimal `json:"average_ticket"`
	StatusTotals       []StatusTotal   `json:"status_totals"`
}

// Service computes reports. Each call reads one consistent snapshot and
// never writes.
type Service struct {
	store     orders.Store
	threshold int
	limit     int
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService: products with stock <= lowStockThreshold are listed on the
// dashboard, at most lowStockLimit of them.
func NewService(store orders.Store, lowStockThreshold, lowStockLimit int, opts ...Option) *Service {
	s := &Service{
		store:     store,
		threshold: lowStockThreshold,
		limit:     lowStockLimit,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CurrentMonth spans the first instant of the current UTC month to now.
func (s *Service) CurrentMonth() orders.Period {
	now := s.now().UTC()
	return orders.Period{From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), To: now}
}

func (s *Service) view(ctx context.Context, name string, fn func(ctx context.Context, r orders.Reader) error) error {
	ctx, span := tracer.Start(ctx, "reports."+name)
	defer span.End()
	return s.store.View(ctx, fn)
}

func (s *Service) MonthlyTotals(ctx context.Context, p orders.Period) (Totals, error) {
	var t Totals
	err := s.view(ctx, "MonthlyTotals", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, p)
		t = totals(os)
		return err
	})
	return t, err
}

// BestSeller returns nil when nothing sold in p.
func (s *Service) BestSeller(ctx context.Context, p orders.Period) (*ProductSales, error) {
	var best *ProductSales
	err := s.view(ctx, "BestSeller", func(ctx context.Context, r orders.Reader) error {
		lines, err := r.SoldLinesBetween(ctx, p)
		best = bestSeller(lines)
		return err
	})
	return best, err
}

func (s *Service) LowStock(ctx context.Context, threshold, limit int) ([]orders.Product, error) {
	var out []orders.Product
	err := s.view(ctx, "LowStock", func(ctx context.Context, r orders.Reader) error {
		var err error
		out, err = r.LowStockProducts(ctx, threshold, limit)
		return err
	})
	return out, err
}

func (s *Service) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	var out []StatusTotal
	err := s.view(ctx, "StatusTotals", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, orders.Period{})
		out = statusTotals(os)
		return err
	})
	return out, err
}

func (s *Service) AverageTicket(ctx context.Context) (decimal.Decimal, error) {
	avg := decimal.Zero
	err := s.view(ctx, "AverageTicket", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, orders.Period{})
		avg = averageTicket(os)
		return err
	})
	return avg, err
}

// Dashboard: current month sales, its best seller and the low stock list.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	month := s.CurrentMonth()
	d := Dashboard{Month: MonthTotals{From: month.From, To: month.To}}
	err := s.view(ctx, "Dashboard", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, month)
		if err != nil {
			return err
		}
		lines, err := r.SoldLinesBetween(ctx, month)
		if err != nil {
			return err
		}
		if d.LowStock, err = r.LowStockProducts(ctx, s.threshold, s.limit); err != nil {
			return err
		}
		d.Month.Totals = totals(os)
		d.BestSeller = bestSeller(lines)
		return nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	if d.LowStock == nil {
		d.LowStock = []orders.Product{}
	}
	return d, nil
}

// SalesReport covers the latest months that had sales, newest first, plus
// lifetime top products.
func (s *Service) SalesReport(ctx context.Context, months int) (SalesReport, error) {
	if months <= 0 || months > MaxSalesMonths {
		return SalesReport{}, orders.Validationf("months must be between 1 and %d", MaxSalesMonths)
	}
	var rep SalesReport
	err := s.view(ctx, "SalesReport", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, orders.Period{})
		if err != nil {
			return err
		}
		lines, err := r.SoldLinesBetween(ctx, orders.Period{})
		if err != nil {
			return err
		}
		rep.Monthly = monthly(os, months)
		rep.TopProducts = topProducts(lines, topProductsLimit)
		return nil
	})
	return rep, err
}

func (s *Service) FinancialReport(ctx context.Context) (FinancialReport, error) {
	var rep FinancialReport
	err := s.view(ctx, "FinancialReport", func(ctx context.Context, r orders.Reader) error {
		os, err := r.OrdersBetween(ctx, orders.Period{})
		if err != nil {
			return err
		}
		rep.LifetimeRevenue = totals(os).TotalSales
		rep.AverageTicketCents = averageTicket(os)
		rep.StatusTotals = statusTotals(os)
		return nil
	})
	return rep, err
}
