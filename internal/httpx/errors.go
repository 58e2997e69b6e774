package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-stock-orders/internal/orders"
	"go.uber.org/zap"
)

type errorBody struct {
	Error     string                 `json:"error"`
	Shortages []orders.StockShortage `json:"shortages,omitempty"`
	Removed   []string               `json:"removed_items,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return orders.Validationf("invalid json")
	}
	return nil
}

// writeError maps business errors to client faults. Anything else is logged
// and answered with an opaque 500.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	var (
		stockErr *orders.StockError
		reactErr *orders.ReactivationError
	)
	switch {
	case errors.Is(err, orders.ErrValidation), errors.Is(err, orders.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &reactErr):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Shortages: reactErr.Shortages})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Shortages: stockErr.Shortages, Removed: stockErr.Removed})
	case errors.Is(err, orders.ErrInsufficientStock), errors.Is(err, orders.ErrInsufficientStockForReactivation):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
