package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-stock-orders/internal/cart"
	"github.com/ariefcatur/go-stock-orders/internal/catalog"
	"github.com/ariefcatur/go-stock-orders/internal/checkout"
	"github.com/ariefcatur/go-stock-orders/internal/fulfillment"
	"github.com/ariefcatur/go-stock-orders/internal/memstore"
	"github.com/ariefcatur/go-stock-orders/internal/metrics"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/ariefcatur/go-stock-orders/internal/reports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const admin = "admin-1"

func newTestRouter(t *testing.T) (*chi.Mux, *memstore.Store) {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := memstore.New()

	carts := cart.NewService(s, log, m)
	r := NewRouter(log, m, reg)
	(&CartHandler{Cart: carts, Log: log}).Register(r)
	(&OrdersHandler{
		Checkout:    checkout.NewService(s, carts, "test", log, m),
		Fulfillment: fulfillment.NewService(s, nil, "test", log, m),
		Log:         log,
	}).Register(r)
	(&AdminHandler{Reports: reports.NewService(s, 5, 10), Catalog: catalog.NewService(s, log), Log: log}).Register(r)
	return r, s
}

func do(t *testing.T, h http.Handler, method, path, user, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderRole, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIdentityIsRequired(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/cart", "", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/orders", "", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/admin/orders", "u1", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/admin/reports/dashboard", "u1", "customer", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/admin/reports/dashboard", admin, "Admin", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/metrics", "", "", nil).Code)
}

func TestCartEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/admin/products", admin, RoleAdmin,
		orders.Product{ID: "lamp", Name: "Lamp", PriceCents: 250, Stock: 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/cart/items", "u1", "", addItemReq{ProductID: "lamp", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cases := []struct {
		name string
		body any
		code int
	}{
		{"zero quantity", addItemReq{ProductID: "lamp", Quantity: 0}, http.StatusBadRequest},
		{"unknown product", addItemReq{ProductID: "nope", Quantity: 1}, http.StatusNotFound},
		{"over stock", addItemReq{ProductID: "lamp", Quantity: 2}, http.StatusConflict},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/cart/items", "u1", "", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	v := decode[cart.View](t, do(t, r, http.MethodGet, "/cart", "u1", "", nil))
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].Quantity)

	rec = do(t, r, http.MethodPut, "/cart/items/lamp", "u1", "", updateItemReq{Quantity: 3})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPut, "/cart/items/other", "u1", "", updateItemReq{Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodDelete, "/cart/items/lamp", "u1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	v = decode[cart.View](t, do(t, r, http.MethodGet, "/cart", "u1", "", nil))
	assert.Empty(t, v.Items)
}

func TestCheckoutAndStatusFlow(t *testing.T) {
	r, s := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/admin/products", admin, RoleAdmin,
		orders.Product{ID: "lamp", Name: "Lamp", PriceCents: 250, Stock: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/cart/items", "u1", "", addItemReq{ProductID: "lamp", Quantity: 1}).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/cart/items", "u2", "", addItemReq{ProductID: "lamp", Quantity: 1}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/orders", "u3", "", nil).Code, "empty cart")

	rec = do(t, r, http.MethodPost, "/orders", "u1", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[CreateOrderResp](t, rec)
	assert.Equal(t, orders.StatusPending, created.Status)
	assert.Equal(t, int64(250), created.TotalCents)

	rec = do(t, r, http.MethodPost, "/orders", "u2", "", nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.Equal(t, []string{"Lamp"}, body.Removed)

	mine := decode[[]orders.Order](t, do(t, r, http.MethodGet, "/orders", "u1", "", nil))
	require.Len(t, mine, 1)
	assert.Equal(t, created.OrderID, mine[0].ID)

	statusPath := "/orders/" + created.OrderID + "/status"
	st := decode[fulfillment.StatusView](t, do(t, r, http.MethodGet, statusPath, "u1", "", nil))
	assert.Equal(t, orders.StatusPending, st.Status)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, statusPath, "u2", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, statusPath, admin, RoleAdmin, nil).Code)

	adminPath := "/admin/orders/" + created.OrderID + "/status"
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, adminPath, admin, RoleAdmin, updateStatusReq{Status: "lost"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, "/admin/orders/nope/status", admin, RoleAdmin, updateStatusReq{Status: "shipped"}).Code)

	rec = do(t, r, http.MethodPut, adminPath, admin, RoleAdmin, updateStatusReq{Status: "Cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decode[fulfillment.Transition](t, rec)
	assert.Equal(t, orders.StockRestore, tr.StockAction)

	// the failed checkout rolled back, so u2's cart still holds the lamp and
	// now takes the restored unit; reactivating u1's order must fail
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/orders", "u2", "", nil).Code)

	rec = do(t, r, http.MethodPut, adminPath, admin, RoleAdmin, updateStatusReq{Status: "pending"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body = decode[errorBody](t, rec)
	require.Len(t, body.Shortages, 1)
	assert.Equal(t, "lamp", body.Shortages[0].ProductID)

	all := decode[[]orders.Order](t, do(t, r, http.MethodGet, "/admin/orders", admin, RoleAdmin, nil))
	assert.Len(t, all, 2)

	evs, err := s.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, evs, 3, "two creations and one cancellation")
}

func TestReportEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/admin/reports/sales", admin, RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/admin/reports/sales?months=12", admin, RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/admin/reports/sales?months=abc", admin, RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/admin/reports/sales?months=0", admin, RoleAdmin, nil).Code)

	rec := do(t, r, http.MethodGet, "/admin/reports/financial", admin, RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fin := decode[map[string]any](t, rec)
	assert.Contains(t, fin, "lifetime_revenue")
	assert.Contains(t, fin, "average_ticket")

	rec = do(t, r, http.MethodGet, "/admin/reports/dashboard", admin, RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[map[string]any](t, rec)
	assert.Nil(t, dash["best_seller"])
	assert.Equal(t, []any{}, dash["low_stock"])
}

func TestCatalogEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/admin/suppliers", admin, RoleAdmin, orders.Supplier{ID: "acme", Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/admin/products", admin, RoleAdmin, map[string]any{"id": "lamp", "name": "Lamp", "stock": 1, "supplier_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, r, http.MethodPost, "/admin/products", admin, RoleAdmin, map[string]any{"id": "lamp", "name": "Lamp", "stock": 1, "supplier_id": "acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPatch, "/admin/products/lamp", admin, RoleAdmin, `{"stock": 7, "supplier_id": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[orders.Product](t, rec)
	assert.Equal(t, 7, p.Stock)
	assert.Nil(t, p.SupplierID)

	rec = do(t, r, http.MethodPatch, "/admin/products/lamp", admin, RoleAdmin, `{"stock": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorHidesInternalFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	writeError(rec, zaptest.NewLogger(t), req, orders.DBError("select", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[errorBody](t, rec).Error)
}
