package woo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// Catalog exposes the Store API product endpoints as a product.Catalog.
type Catalog struct {
	cl *Client
}

var _ product.Catalog = Catalog{}

// Catalog returns the product catalog view of the client.
func (cl *Client) Catalog() Catalog { return Catalog{cl: cl} }

// List fetches one page of products.
func (c Catalog) List(ctx context.Context, q product.Query) ([]product.Product, error) {
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

	data, err := c.cl.do(ctx, call{
		name:   "list_products",
		method: http.MethodGet,
		path:   "/wp-json/wc/store/v1/products",
		query:  query,
	})
	if err != nil {
		return nil, err
	}
	products, err := decodeProductList(data)
	if err != nil {
		return nil, &DecodeError{Call: "list_products", Err: err}
	}
	return products, nil
}

// Get fetches a single product, returning product.ErrNotFound on 404.
func (c Catalog) Get(ctx context.Context, id int64) (*product.Product, error) {
	data, err := c.cl.do(ctx, call{
		name:   "get_product",
		method: http.MethodGet,
		path:   "/wp-json/wc/store/v1/products/" + strconv.FormatInt(id, 10),
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	p, err := decodeProduct(data)
	if err != nil {
		return nil, &DecodeError{Call: "get_product", Err: err}
	}
	return p, nil
}
