package woo

import (
	"context"
	"net/http"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Creator = (*Client)(nil)

// CreateOrder creates an order with the consumer key credentials.
func (cl *Client) CreateOrder(ctx context.Context, req *order.Request) (*order.Created, error) {
	var created order.Created
	if err := cl.doJSON(ctx, call{
		name:   "create_order",
		method: http.MethodPost,
		path:   "/wp-json/wc/v3/orders",
		body:   req,
		auth:   authConsumer,
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, &DecodeError{Call: "create_order", Err: errMissingID}
	}
	return &created, nil
}
