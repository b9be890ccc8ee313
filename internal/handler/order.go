package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// IdempotencyKeyHeader carries the client's submission key.
const IdempotencyKeyHeader = "Idempotency-Key"

type orderBody struct {
	Cart        cart.Lines      `json:"cart"`
	Form        order.Form      `json:"form"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
}

type orderResponse struct {
	OK    bool           `json:"ok"`
	Order *order.Created `json:"order"`
}

// PlaceOrder validates the submission and creates the order upstream. A
// bearer token, when present and resolvable, links the order to the
// customer; otherwise a guest order is created.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	var body orderBody
	if !h.decode(w, r, &body) {
		return
	}

	req := order.CreateRequest{
		Cart:           body.Cart,
		Form:           body.Form,
		ShippingFee:    body.ShippingFee,
		Tax:            body.Tax,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	}
	if token := bearerToken(r); token != "" && h.customers != nil {
		id, err := h.customers.CustomerID(ctx, token)
		if err != nil {
			lg.Warn("Customer lookup failed, placing guest order", zap.Error(err))
		} else {
			req.CustomerID = id
		}
	}

	created, err := h.orders.Create(ctx, req)
	if err != nil {
		status, resp := mapOrderError(err)
		if status >= http.StatusInternalServerError {
			lg.Error("Order creation failed", zap.Error(err))
		}
		httpmiddleware.WriteJSON(w, status, resp)
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, orderResponse{OK: true, Order: created})
}

// mapOrderError converts domain errors to an HTTP status and error body.
func mapOrderError(err error) (int, httpmiddleware.ErrorBody) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, httpmiddleware.ErrorBody{
			Message: vErr.Err.Error(),
			Field:   vErr.Field,
		}
	}

	var pidErr *order.InvalidProductIDError
	if errors.As(err, &pidErr) {
		return http.StatusBadRequest, httpmiddleware.ErrorBody{Message: pidErr.Error(), Field: "cart"}
	}

	var qtyErr *order.InvalidQuantityError
	if errors.As(err, &qtyErr) {
		return http.StatusBadRequest, httpmiddleware.ErrorBody{Message: qtyErr.Error(), Field: "cart"}
	}

	if errors.Is(err, order.ErrNoLineItems) {
		return http.StatusBadRequest, httpmiddleware.ErrorBody{Message: err.Error(), Field: "cart"}
	}

	body := httpmiddleware.ErrorBody{Message: order.FailureMessage(err)}
	var upErr upstreamError
	if errors.As(err, &upErr) {
		body.Detail = upErr.Detail()
	}
	return http.StatusBadGateway, body
}
