package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// MinimumOrder is the smallest subtotal accepted at checkout.
var MinimumOrder = decimal.NewFromInt(80)

var hundred = decimal.NewFromInt(100)

// Price computes the breakdown for lines delivered to area. A nil area
// means no fee and no tax.
func Price(lines cart.Lines, area *Area) Quote {
	return PriceSubtotal(lines.Subtotal(), area)
}

// PriceSubtotal is Price for an already summed subtotal.
func PriceSubtotal(subtotal decimal.Decimal, area *Area) Quote {
	q := Quote{
		Subtotal:    subtotal,
		ShippingFee: decimal.Zero,
		Tax:         decimal.Zero,
	}
	if area != nil {
		if subtotal.LessThan(area.FreeShippingThreshold) {
			q.ShippingFee = area.Fee
		}
		// Round(0) rounds halves away from zero, so 7.5 becomes 8.
		q.Tax = subtotal.Mul(area.TaxPercent).Div(hundred).Round(0)
	}
	q.Total = q.Subtotal.Add(q.ShippingFee).Add(q.Tax)
	return q
}
