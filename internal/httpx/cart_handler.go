package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-stock-orders/internal/cart"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	Cart *cart.Service
	Log  *zap.Logger
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

type messageResp struct {
	Message string `json:"message"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/cart", h.get)
		r.Post("/cart/items", h.add)
		r.Put("/cart/items/{productID}", h.update)
		r.Delete("/cart/items/{productID}", h.remove)
	})
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	v, err := h.Cart.Get(ctx, PrincipalFrom(ctx).UserID)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	if err := h.Cart.Add(ctx, PrincipalFrom(ctx).UserID, req.ProductID, req.Quantity); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResp{Message: "product added to cart"})
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	if err := h.Cart.Update(ctx, PrincipalFrom(ctx).UserID, chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	msg := "cart updated"
	if req.Quantity <= 0 {
		msg = "item removed from cart"
	}
	writeJSON(w, http.StatusOK, messageResp{Message: msg})
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	if err := h.Cart.Remove(ctx, PrincipalFrom(ctx).UserID, chi.URLParam(r, "productID")); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResp{Message: "item removed from cart"})
}
