package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-stock-orders/internal/catalog"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/ariefcatur/go-stock-orders/internal/reports"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	Reports *reports.Service
	Catalog *catalog.Service
	Log     *zap.Logger
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/admin/reports/dashboard", h.dashboard)
		r.Get("/admin/reports/sales", h.sales)
		r.Get("/admin/reports/financial", h.financial)
		r.Post("/admin/suppliers", h.createSupplier)
		r.Post("/admin/products", h.createProduct)
		r.Patch("/admin/products/{id}", h.patchProduct)
	})
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	d, err := h.Reports.Dashboard(ctx)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *AdminHandler) sales(w http.ResponseWriter, r *http.Request) {
	months := reports.DefaultSalesMonths
	if q := r.URL.Query().Get("months"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, h.Log, r, orders.Validationf("months must be a number"))
			return
		}
		months = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	rep, err := h.Reports.SalesReport(ctx, months)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AdminHandler) financial(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	rep, err := h.Reports.FinancialReport(ctx)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AdminHandler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req orders.Supplier
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	s, err := h.Catalog.CreateSupplier(ctx, req)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req orders.Product
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) patchProduct(w http.ResponseWriter, r *http.Request) {
	var patch orders.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	p, err := h.Catalog.Patch(ctx, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
