package orders

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an omitted field from one explicitly set, including
// explicitly set to null. Only the zero Optional is "omitted".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// UnmarshalJSON is only called for keys present in the document, which is
// what makes Set meaningful.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// ProductPatch is a partial product update. SupplierID may be cleared with
// null; the other fields reject null.
type ProductPatch struct {
	Name       Optional[string] `json:"name"`
	PriceCents Optional[int64]  `json:"price_cents"`
	Stock      Optional[int]    `json:"stock"`
	SupplierID Optional[string] `json:"supplier_id"`
}

func (p ProductPatch) Empty() bool {
	return !p.Name.Set && !p.PriceCents.Set && !p.Stock.Set && !p.SupplierID.Set
}

func (p ProductPatch) Validate() error {
	if p.Empty() {
		return Validationf("no fields to update")
	}
	if p.Name.Set && (p.Name.Null || p.Name.Value == "") {
		return Validationf("name cannot be empty")
	}
	if p.PriceCents.Set && (p.PriceCents.Null || p.PriceCents.Value < 0) {
		return Validationf("price_cents must be >= 0")
	}
	if p.Stock.Set && (p.Stock.Null || p.Stock.Value < 0) {
		return Validationf("stock must be >= 0")
	}
	if p.SupplierID.Set && !p.SupplierID.Null && p.SupplierID.Value == "" {
		return Validationf("supplier_id must be null or non-empty")
	}
	return nil
}

// Apply returns p applied to prod. Call Validate first.
func (p ProductPatch) Apply(prod Product) Product {
	if p.Name.Set {
		prod.Name = p.Name.Value
	}
	if p.PriceCents.Set {
		prod.PriceCents = p.PriceCents.Value
	}
	if p.Stock.Set {
		prod.Stock = p.Stock.Value
	}
	if p.SupplierID.Set {
		if p.SupplierID.Null {
			prod.SupplierID = nil
			prod.Supplier = nil
		} else {
			id := p.SupplierID.Value
			prod.SupplierID = &id
		}
	}
	return prod
}
