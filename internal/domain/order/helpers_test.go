package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// --- Helpers ---

func testLine(id, price string, qty int) cart.Line {
	return cart.Line{
		ID:    cart.ProductID(id),
		Name:  "Product " + id,
		Image: "https://cdn.example.com/" + id + ".jpg",
		Price: decimal.RequireFromString(price),
		Qty:   qty,
	}
}

func testForm() Form {
	return Form{
		Name:         "Amy Chen",
		Phone:        "604-555-0100",
		Email:        "amy@example.com",
		Payment:      "匯款",
		DeliveryArea: "burnaby",
		Address:      "4700 Kingsway",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
