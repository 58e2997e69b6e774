package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductPatch_OmittedVersusNull(t *testing.T) {
	var p ProductPatch
	require.NoError(t, json.Unmarshal([]byte(`{"stock": 7, "supplier_id": null}`), &p))

	assert.False(t, p.Name.Set)
	assert.False(t, p.PriceCents.Set)
	assert.True(t, p.Stock.Set)
	assert.Equal(t, 7, p.Stock.Value)
	assert.True(t, p.SupplierID.Set)
	assert.True(t, p.SupplierID.Null)
	require.NoError(t, p.Validate())

	sup := "sup-1"
	got := p.Apply(Product{ID: "p1", Name: "Lamp", PriceCents: 900, Stock: 1, SupplierID: &sup})
	assert.Equal(t, "Lamp", got.Name)
	assert.Equal(t, int64(900), got.PriceCents)
	assert.Equal(t, 7, got.Stock)
	assert.Nil(t, got.SupplierID)
}

func TestProductPatch_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"null name", `{"name": null}`},
		{"blank name", `{"name": ""}`},
		{"negative stock", `{"stock": -1}`},
		{"null stock", `{"stock": null}`},
		{"negative price", `{"price_cents": -5}`},
		{"blank supplier", `{"supplier_id": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ProductPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.ErrorIs(t, p.Validate(), ErrValidation)
		})
	}
}
