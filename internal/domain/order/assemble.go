package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrNoLineItems is returned when an order would carry no line items.
var ErrNoLineItems = errors.New("order has no line items")

// InvalidProductIDError indicates a cart line whose id is not a positive
// integer and therefore cannot reference a backend product.
type InvalidProductIDError struct {
	ProductID string
}

func (e *InvalidProductIDError) Error() string {
	return fmt.Sprintf("invalid product id %q", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Meta keys attached to every assembled order.
const (
	MetaWeChat         = "_wechat"
	MetaContactOther   = "_contact_other"
	MetaAreaSlug       = "_delivery_area_slug"
	MetaAreaLabel      = "_delivery_area_label"
	MetaAddress        = "_delivery_address"
	MetaSubscribe      = "_subscribe"
	MetaIdempotencyKey = "_idempotency_key"
)

const (
	shippingMethodID = "flat_rate"
	defaultCountry   = "CA"
	defaultState     = "BC"
)

// AssembleInput is everything needed to build an order payload.
type AssembleInput struct {
	Lines       cart.Lines
	Form        Form
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal

	// CustomerID links the order to a registered customer when non-zero.
	CustomerID int64
	// TaxRateID sends tax as a rate-linked tax line instead of a fee line.
	TaxRateID      int64
	IdempotencyKey string
}

// Assemble builds the order-creation payload. It fails only on line items
// that cannot be sent; form problems are the job of Validate.
func Assemble(in AssembleInput) (*Request, error) {
	items, err := lineItems(in.Lines)
	if err != nil {
		return nil, err
	}

	f := in.Form
	area := ResolveArea(f.DeliveryArea)
	payment := ClassifyPayment(f.Payment)
	address := strings.TrimSpace(f.Address)
	first, last := splitName(f.Name)

	shipping := Address{
		FirstName: first,
		LastName:  last,
		Address1:  address,
		City:      area.Label(),
		State:     defaultState,
		Country:   defaultCountry,
	}
	billing := shipping
	billing.Email = strings.TrimSpace(f.Email)
	billing.Phone = strings.TrimSpace(f.Phone)

	req := &Request{
		PaymentMethod:      payment.Method.Slug,
		PaymentMethodTitle: payment.Method.Title,
		CustomerID:         in.CustomerID,
		CustomerNote:       customerNote(f, area, payment),
		Billing:            billing,
		Shipping:           shipping,
		LineItems:          items,
		ShippingLines: []ShippingLine{{
			MethodID:    shippingMethodID,
			MethodTitle: shippingTitle(area),
			Total:       money(in.ShippingFee),
		}},
		MetaData: metaData(f, area, in.IdempotencyKey),
	}

	if in.Tax.IsPositive() {
		if in.TaxRateID > 0 {
			req.TaxLines = []TaxLine{{RateID: in.TaxRateID, TaxTotal: money(in.Tax)}}
		} else {
			req.FeeLines = []FeeLine{{Name: "Tax", TaxStatus: "none", Total: money(in.Tax)}}
		}
	}

	return req, nil
}

func lineItems(lines cart.Lines) ([]LineItem, error) {
	if len(lines) == 0 {
		return nil, ErrNoLineItems
	}
	items := make([]LineItem, len(lines))
	for i, l := range lines {
		id, err := strconv.ParseInt(strings.TrimSpace(string(l.ID)), 10, 64)
		if err != nil || id <= 0 {
			return nil, &InvalidProductIDError{ProductID: string(l.ID)}
		}
		if l.Qty <= 0 {
			return nil, &InvalidQuantityError{ProductID: string(l.ID)}
		}
		items[i] = LineItem{ProductID: id, Quantity: l.Qty}
	}
	return items, nil
}

// splitName puts the first word in first and the rest in last. Names
// without spaces are kept whole as the first name.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func shippingTitle(area AreaChoice) string {
	if label := area.Label(); label != "" {
		return "Delivery - " + label
	}
	return "Delivery"
}

func customerNote(f Form, area AreaChoice, payment PaymentChoice) string {
	var b strings.Builder
	line := func(k, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
	}
	line("Payment", payment.Method.Title)
	line("Area", area.Label())
	line("Address", f.Address)
	line("WeChat", f.WeChat)
	line("Other contact", f.ContactOther)
	return b.String()
}

func metaData(f Form, area AreaChoice, idempotencyKey string) []Meta {
	var meta []Meta
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			meta = append(meta, Meta{Key: k, Value: v})
		}
	}
	add(MetaWeChat, f.WeChat)
	add(MetaContactOther, f.ContactOther)
	add(MetaAreaSlug, area.Slug())
	add(MetaAreaLabel, area.Label())
	add(MetaAddress, f.Address)
	if f.Subscribe {
		add(MetaSubscribe, "yes")
	} else {
		add(MetaSubscribe, "no")
	}
	add(MetaIdempotencyKey, idempotencyKey)
	return meta
}
