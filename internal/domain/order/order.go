package order

import (
	"github.com/shopspring/decimal"
)

// Form is the checkout contact and delivery form.
type Form struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Payment      string `json:"payment"`
	DeliveryArea string `json:"deliveryArea"`
	Address      string `json:"address"`
	WeChat       string `json:"wechat,omitempty"`
	ContactOther string `json:"contactOther,omitempty"`
	Subscribe    bool   `json:"subscribe,omitempty"`
}

// Quote is the locally computed price breakdown of a cart.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Request is the order-creation payload accepted by the commerce backend.
// Amounts are sent as strings, matching what the backend returns.
type Request struct {
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	SetPaid            bool           `json:"set_paid"`
	CustomerID         int64          `json:"customer_id,omitempty"`
	CustomerNote       string         `json:"customer_note,omitempty"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
	FeeLines           []FeeLine      `json:"fee_lines,omitempty"`
	TaxLines           []TaxLine      `json:"tax_lines,omitempty"`
	MetaData           []Meta         `json:"meta_data,omitempty"`
}

// Address is a billing or shipping address.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem references a product by id. Prices are never sent.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type FeeLine struct {
	Name      string `json:"name"`
	TaxStatus string `json:"tax_status"`
	Total     string `json:"total"`
}

type TaxLine struct {
	RateID   int64  `json:"rate_id"`
	TaxTotal string `json:"tax_total"`
}

type Meta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Meta returns the value stored under key.
func (r *Request) Meta(key string) (string, bool) {
	for _, m := range r.MetaData {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// Created is the backend's acknowledgement of a new order.
type Created struct {
	ID     int64           `json:"id"`
	Number string          `json:"number"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
