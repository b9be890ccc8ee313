package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const maxPerPage = 100

type productsResponse struct {
	OK       bool              `json:"ok"`
	Products []product.Product `json:"products"`
}

type productResponse struct {
	OK      bool             `json:"ok"`
	Product *product.Product `json:"product"`
}

// ListProducts returns a catalog page filtered by category and search.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := product.Query{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	var err error
	if query.Page, err = positiveInt(q.Get("page")); err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	if query.PerPage, err = positiveInt(q.Get("per_page")); err != nil || query.PerPage > maxPerPage {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "per_page must be between 1 and 100")
		return
	}

	products, err := h.catalog.List(r.Context(), query)
	if err != nil {
		zctx.From(r.Context()).Error("List products failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusBadGateway, "failed to load products")
		return
	}
	if products == nil {
		products = []product.Product{}
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, productsResponse{OK: true, Products: products})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.catalog.Get(r.Context(), id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		zctx.From(r.Context()).Error("Get product failed", zap.Int64("product_id", id), zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusBadGateway, "failed to load product")
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, productResponse{OK: true, Product: p})
}

// positiveInt parses an optional positive integer; "" yields 0.
func positiveInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.Errorf("%d is not positive", n)
	}
	return n, nil
}
