package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation                       = errors.New("validation error")
	ErrNotFound                         = errors.New("not found")
	ErrProductNotFound                  = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound                    = fmt.Errorf("order %w", ErrNotFound)
	ErrSupplierNotFound                 = fmt.Errorf("supplier %w", ErrNotFound)
	ErrCartItemNotFound                 = fmt.Errorf("cart item %w", ErrNotFound)
	ErrInsufficientStock                = errors.New("insufficient stock")
	ErrInsufficientStockForReactivation = errors.New("insufficient stock to reactivate order")
	ErrEmptyCart                        = errors.New("cart is empty")
	ErrDatabase                         = errors.New("database error")
	ErrInvalidTransition                = fmt.Errorf("%w: status transition not allowed", ErrValidation)
)

// StockShortage describes one product that cannot cover a requested quantity.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// StockError is returned by cart and checkout operations when stock cannot
// cover the request.
type StockError struct {
	Shortages []StockShortage
	Removed   []string
	missing   bool
}

func NewStockError(s StockShortage) *StockError {
	return &StockError{Shortages: []StockShortage{s}}
}

// MissingProduct builds a StockError that also matches ErrProductNotFound.
func MissingProduct(productID string, required int) *StockError {
	e := NewStockError(StockShortage{ProductID: productID, Required: required})
	e.missing = true
	return e
}

func (e *StockError) Error() string {
	if len(e.Removed) > 0 && len(e.Shortages) == 0 {
		return fmt.Sprintf("insufficient stock: out of stock %s", strings.Join(e.Removed, ", "))
	}
	if len(e.Shortages) == 1 {
		s := e.Shortages[0]
		return fmt.Sprintf("insufficient stock for product %s: available %d, required %d", s.ProductID, s.Available, s.Required)
	}
	return fmt.Sprintf("insufficient stock for %d products", len(e.Shortages))
}

func (e *StockError) Is(target error) bool {
	if target == ErrInsufficientStock {
		return true
	}
	return e.missing && (target == ErrProductNotFound || target == ErrNotFound)
}

// ReactivationError lists every line that blocked leaving the cancelled state.
type ReactivationError struct {
	OrderID   string
	Shortages []StockShortage
}

func (e *ReactivationError) Error() string {
	ids := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, s.ProductID)
	}
	return fmt.Sprintf("insufficient stock to reactivate order %s: %s", e.OrderID, strings.Join(ids, ", "))
}

func (e *ReactivationError) Unwrap() error { return ErrInsufficientStockForReactivation }

// DBError marks a storage failure unrelated to business rules.
func DBError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrDatabase, err))
}

// Validationf formats an ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
