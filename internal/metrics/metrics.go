package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockorders"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	Checkouts         *prometheus.CounterVec
	CartReconciled    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	StockCompensation *prometheus.CounterVec
	LowStockAlerts    prometheus.Counter
	OutboxPublished   *prometheus.CounterVec
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "checkouts_total",
			Help: "Checkout attempts by result.",
		}, []string{"result"}),
		CartReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cart_reconciled_items_total",
			Help: "Cart entries changed while reconciling against stock.",
		}, []string{"action"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_status_transitions_total",
			Help: "Order status updates by source and target status and result.",
		}, []string{"from", "to", "result"}),
		StockCompensation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_compensation_units_total",
			Help: "Units restored or re-reduced by status transitions.",
		}, []string{"action"}),
		LowStockAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "low_stock_alerts_total",
			Help: "Products seen at or below the low stock threshold after an order.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outbox_events_total",
			Help: "Outbox events by topic and publish result.",
		}, []string{"topic", "result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}
	reg.MustRegister(m.Checkouts, m.CartReconciled, m.StatusTransitions, m.StockCompensation,
		m.LowStockAlerts, m.OutboxPublished, m.Requests, m.LatencyMS)
	return m
}

func (m *Metrics) Checkout(result string) {
	if m != nil {
		m.Checkouts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) CartChanged(action string, n int) {
	if m != nil && n > 0 {
		m.CartReconciled.WithLabelValues(action).Add(float64(n))
	}
}

func (m *Metrics) Transition(from, to, result string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to, result).Inc()
	}
}

func (m *Metrics) Compensated(action string, units int) {
	if m != nil && units > 0 {
		m.StockCompensation.WithLabelValues(action).Add(float64(units))
	}
}

func (m *Metrics) LowStock() {
	if m != nil {
		m.LowStockAlerts.Inc()
	}
}

func (m *Metrics) Outbox(topic, result string) {
	if m != nil {
		m.OutboxPublished.WithLabelValues(topic, result).Inc()
	}
}

func (m *Metrics) Request(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(d.Microseconds()) / 1000)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
