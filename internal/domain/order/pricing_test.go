package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
)

func TestPriceSubtotal(t *testing.T) {
	burnaby := ResolveArea("burnaby").Area
	require.NotNil(t, burnaby)

	tests := []struct {
		name     string
		subtotal string
		area     *Area
		fee      string
		tax      string
		total    string
	}{
		{name: "over threshold rounds 7.5 up", subtotal: "150", area: burnaby, fee: "0", tax: "8", total: "158"},
		{name: "under threshold rounds 2.5 up", subtotal: "50", area: burnaby, fee: "12", tax: "3", total: "65"},
		{name: "exactly at threshold is free", subtotal: "120", area: burnaby, fee: "0", tax: "6", total: "126"},
		{name: "rounds 4.4 down", subtotal: "88", area: burnaby, fee: "12", tax: "4", total: "104"},
		{name: "no area", subtotal: "50", area: nil, fee: "0", tax: "0", total: "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := PriceSubtotal(dec(tt.subtotal), tt.area)
			assert.True(t, q.Subtotal.Equal(dec(tt.subtotal)), "subtotal %s", q.Subtotal)
			assert.True(t, q.ShippingFee.Equal(dec(tt.fee)), "fee %s", q.ShippingFee)
			assert.True(t, q.Tax.Equal(dec(tt.tax)), "tax %s", q.Tax)
			assert.True(t, q.Total.Equal(dec(tt.total)), "total %s", q.Total)
		})
	}
}

func TestPrice_SumsWithoutIntermediateRounding(t *testing.T) {
	lines := cart.Lines{
		testLine("1", "33.33", 3),
		testLine("2", "0.01", 1),
	}
	q := Price(lines, ResolveArea("vancouver").Area)

	assert.Equal(t, "100", q.Subtotal.String())
	assert.Equal(t, "10", q.ShippingFee.String())
	assert.Equal(t, "5", q.Tax.String())
	assert.Equal(t, "115", q.Total.String())
}

func TestPrice_UnrecognizedAreaHasNoFeeOrTax(t *testing.T) {
	choice := ResolveArea("Whistler")
	require.False(t, choice.Recognized())

	q := Price(cart.Lines{testLine("1", "50", 1)}, choice.Area)
	assert.True(t, q.ShippingFee.IsZero())
	assert.True(t, q.Tax.IsZero())
	assert.Equal(t, "50", q.Total.String())
}
