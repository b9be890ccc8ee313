package order

import (
	"strings"
)

// PaymentMethod is a canonical payment gateway slug with its display title.
type PaymentMethod struct {
	Slug  string
	Title string
}

var (
	CashOnDelivery = PaymentMethod{Slug: "cod", Title: "Cash on delivery"}
	BankTransfer   = PaymentMethod{Slug: "bacs", Title: "Direct bank transfer"}
	CardPayment    = PaymentMethod{Slug: "stripe", Title: "Credit card"}
	LinePay        = PaymentMethod{Slug: "linepay", Title: "LINE Pay"}
)

type paymentRule struct {
	keywords []string
	method   PaymentMethod
}

// Evaluated top to bottom; the first rule with a matching keyword wins.
var paymentRules = []paymentRule{
	{keywords: []string{"貨到付款", "货到付款", "cod", "cash", "現金", "现金"}, method: CashOnDelivery},
	{keywords: []string{"匯款", "汇款", "轉帳", "转账", "bank", "transfer", "bacs"}, method: BankTransfer},
	{keywords: []string{"stripe", "card", "信用卡", "credit"}, method: CardPayment},
	{keywords: []string{"line pay", "linepay"}, method: LinePay},
}

// PaymentKind tells how a PaymentChoice was derived.
type PaymentKind int

const (
	PaymentDefault PaymentKind = iota
	PaymentRecognized
	PaymentUnrecognized
)

// PaymentChoice is the classified payment input.
type PaymentChoice struct {
	Kind   PaymentKind
	Method PaymentMethod
	Raw    string
}

// ClassifyPayment maps free-text payment input to a canonical method. Empty
// input selects cash on delivery. Unmatched input also selects cash on
// delivery but keeps the original text as the title.
func ClassifyPayment(raw string) PaymentChoice {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PaymentChoice{Kind: PaymentDefault, Method: CashOnDelivery}
	}

	lower := strings.ToLower(raw)
	for _, rule := range paymentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return PaymentChoice{Kind: PaymentRecognized, Method: rule.method, Raw: raw}
			}
		}
	}

	return PaymentChoice{
		Kind:   PaymentUnrecognized,
		Method: PaymentMethod{Slug: CashOnDelivery.Slug, Title: raw},
		Raw:    raw,
	}
}
