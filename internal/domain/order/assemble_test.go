package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
)

func TestAssemble(t *testing.T) {
	f := testForm()
	f.WeChat = "amy_wx"
	f.Subscribe = true

	req, err := Assemble(AssembleInput{
		Lines:          cart.Lines{testLine("101", "40", 2), testLine(" 7 ", "5", 1)},
		Form:           f,
		ShippingFee:    dec("12"),
		Tax:            dec("4"),
		CustomerID:     42,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "bacs", req.PaymentMethod)
	assert.Equal(t, BankTransfer.Title, req.PaymentMethodTitle)
	assert.False(t, req.SetPaid)
	assert.Equal(t, int64(42), req.CustomerID)

	assert.Equal(t, []LineItem{{ProductID: 101, Quantity: 2}, {ProductID: 7, Quantity: 1}}, req.LineItems)

	assert.Equal(t, "Amy", req.Billing.FirstName)
	assert.Equal(t, "Chen", req.Billing.LastName)
	assert.Equal(t, "Burnaby", req.Billing.City)
	assert.Equal(t, "4700 Kingsway", req.Billing.Address1)
	assert.Equal(t, "amy@example.com", req.Billing.Email)
	assert.Equal(t, "604-555-0100", req.Billing.Phone)
	assert.Equal(t, "Burnaby", req.Shipping.City)
	assert.Empty(t, req.Shipping.Email)

	require.Len(t, req.ShippingLines, 1)
	assert.Equal(t, "12.00", req.ShippingLines[0].Total)
	assert.Equal(t, "Delivery - Burnaby", req.ShippingLines[0].MethodTitle)

	require.Len(t, req.FeeLines, 1)
	assert.Equal(t, "4.00", req.FeeLines[0].Total)
	assert.Empty(t, req.TaxLines)

	assert.Equal(t,
		"Payment: Direct bank transfer\nArea: Burnaby\nAddress: 4700 Kingsway\nWeChat: amy_wx",
		req.CustomerNote,
	)

	for key, want := range map[string]string{
		MetaWeChat:         "amy_wx",
		MetaAreaSlug:       "burnaby",
		MetaAreaLabel:      "Burnaby",
		MetaAddress:        "4700 Kingsway",
		MetaSubscribe:      "yes",
		MetaIdempotencyKey: "key-1",
	} {
		got, ok := req.Meta(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := req.Meta(MetaContactOther)
	assert.False(t, ok)
}

func TestAssemble_SlugAndLabelProduceSamePayload(t *testing.T) {
	build := func(area string) *Request {
		f := testForm()
		f.DeliveryArea = area
		req, err := Assemble(AssembleInput{Lines: cart.Lines{testLine("1", "90", 1)}, Form: f})
		require.NoError(t, err)
		return req
	}

	a, b := build("burnaby"), build("Burnaby")
	assert.Equal(t, a, b)
	slug, _ := a.Meta(MetaAreaSlug)
	assert.Equal(t, "burnaby", slug)
}

func TestAssemble_TaxRateLine(t *testing.T) {
	req, err := Assemble(AssembleInput{
		Lines:     cart.Lines{testLine("1", "90", 1)},
		Form:      testForm(),
		Tax:       dec("5"),
		TaxRateID: 3,
	})
	require.NoError(t, err)

	assert.Empty(t, req.FeeLines)
	assert.Equal(t, []TaxLine{{RateID: 3, TaxTotal: "5.00"}}, req.TaxLines)
}

func TestAssemble_ZeroTaxAddsNoLines(t *testing.T) {
	req, err := Assemble(AssembleInput{Lines: cart.Lines{testLine("1", "90", 1)}, Form: testForm()})
	require.NoError(t, err)
	assert.Empty(t, req.FeeLines)
	assert.Empty(t, req.TaxLines)
	require.Len(t, req.ShippingLines, 1)
	assert.Equal(t, "0.00", req.ShippingLines[0].Total)
}

func TestAssemble_UnrecognizedInputPassesThrough(t *testing.T) {
	f := testForm()
	f.DeliveryArea = "Whistler"
	f.Payment = "随便"

	req, err := Assemble(AssembleInput{Lines: cart.Lines{testLine("1", "90", 1)}, Form: f})
	require.NoError(t, err)
	assert.Equal(t, "cod", req.PaymentMethod)
	assert.Equal(t, "随便", req.PaymentMethodTitle)
	assert.Equal(t, "Whistler", req.Billing.City)
	slug, _ := req.Meta(MetaAreaSlug)
	assert.Equal(t, "Whistler", slug)
}

func TestAssemble_RejectsBadLineItems(t *testing.T) {
	_, err := Assemble(AssembleInput{Form: testForm()})
	require.ErrorIs(t, err, ErrNoLineItems)

	for _, id := range []string{"0", "-3", "abc", "", "1.5"} {
		t.Run(id, func(t *testing.T) {
			_, err := Assemble(AssembleInput{Lines: cart.Lines{testLine(id, "1", 1)}, Form: testForm()})
			var idErr *InvalidProductIDError
			require.ErrorAs(t, err, &idErr)
			assert.Equal(t, id, idErr.ProductID)
		})
	}

	_, err = Assemble(AssembleInput{Lines: cart.Lines{testLine("5", "1", 0)}, Form: testForm()})
	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
}

func TestAssemble_WireShape(t *testing.T) {
	req, err := Assemble(AssembleInput{
		Lines:       cart.Lines{testLine("12", "90", 1)},
		Form:        testForm(),
		ShippingFee: dec("12"),
	})
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, false, wire["set_paid"])
	assert.Equal(t, []any{map[string]any{"product_id": float64(12), "quantity": float64(1)}}, wire["line_items"])
	assert.NotContains(t, wire, "customer_id")
	assert.NotContains(t, wire, "fee_lines")
}
