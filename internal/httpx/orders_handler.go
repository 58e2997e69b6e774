package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-stock-orders/internal/checkout"
	"github.com/ariefcatur/go-stock-orders/internal/fulfillment"
	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	Checkout    *checkout.Service
	Fulfillment *fulfillment.Service
	Log         *zap.Logger
}

type CreateOrderResp struct {
	OrderID    string        `json:"order_id"`
	Status     orders.Status `json:"status"`
	TotalCents int64         `json:"total_cents"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.userOrders)
		r.Get("/orders/{id}/status", h.orderStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/admin/orders", h.allOrders)
		r.Put("/admin/orders/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	o, err := h.Checkout.CreateOrderOnce(ctx, PrincipalFrom(ctx).UserID, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: o.ID, Status: o.Status, TotalCents: o.TotalCents})
}

func (h *OrdersHandler) userOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	os, err := h.Fulfillment.UserOrders(ctx, PrincipalFrom(ctx).UserID)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) allOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	os, err := h.Fulfillment.AllOrders(ctx)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

// orderStatus answers from the redis cache when it can. Other users' orders
// look like missing ones.
func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	v, err := h.Fulfillment.Status(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	p := PrincipalFrom(ctx)
	if !p.Admin() && v.UserID != p.UserID {
		writeError(w, h.Log, r, orders.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	t, err := h.Fulfillment.UpdateStatus(ctx, chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
