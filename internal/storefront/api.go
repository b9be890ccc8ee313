package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

type authResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

func (r authResponse) grant() (*auth.Grant, error) {
	if r.Token == "" || r.User == nil {
		return nil, auth.ErrIncompleteGrant
	}
	return &auth.Grant{Token: r.Token, User: *r.User}, nil
}

// Login calls POST /api/auth/login.
func (cl *Client) Login(ctx context.Context, c auth.Credentials) (*auth.Grant, error) {
	var resp authResponse
	if err := cl.call(ctx, request{method: http.MethodPost, path: "/api/auth/login", body: c}, &resp); err != nil {
		return nil, err
	}
	return resp.grant()
}

// Register calls POST /api/auth/register.
func (cl *Client) Register(ctx context.Context, r auth.Registration) (*auth.Grant, error) {
	var resp authResponse
	if err := cl.call(ctx, request{method: http.MethodPost, path: "/api/auth/register", body: r}, &resp); err != nil {
		return nil, err
	}
	return resp.grant()
}

// SubmitOrder calls POST /api/order with the submission's idempotency key
// and bearer token.
func (cl *Client) SubmitOrder(ctx context.Context, s order.Submission) (*order.Created, error) {
	headers := map[string]string{"Idempotency-Key": s.IdempotencyKey}
	if s.Token != "" {
		headers["Authorization"] = "Bearer " + s.Token
	}

	var resp struct {
		Order *order.Created `json:"order"`
	}
	if err := cl.call(ctx, request{
		method:  http.MethodPost,
		path:    "/api/order",
		body:    s,
		headers: headers,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil || resp.Order.ID == 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "order response has no order id")
	}
	return resp.Order, nil
}

// List calls GET /api/products.
func (cl *Client) List(ctx context.Context, q product.Query) ([]product.Product, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}

	var resp struct {
		Products []product.Product `json:"products"`
	}
	if err := cl.call(ctx, request{method: http.MethodGet, path: "/api/products", query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Get calls GET /api/products/{id}.
func (cl *Client) Get(ctx context.Context, id int64) (*product.Product, error) {
	var resp struct {
		Product *product.Product `json:"product"`
	}
	err := cl.call(ctx, request{method: http.MethodGet, path: "/api/products/" + strconv.FormatInt(id, 10)}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, errors.Wrapf(product.ErrNotFound, "product %d", id)
	}
	if err != nil {
		return nil, err
	}
	if resp.Product == nil {
		return nil, errors.Wrap(ErrMalformedResponse, "product response is empty")
	}
	return resp.Product, nil
}
