// Package handler exposes the storefront HTTP API: order creation, login,
// registration and the product catalog.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// OrderCreator creates orders from API submissions.
type OrderCreator interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Created, error)
}

// CustomerResolver maps a bearer token to the backend customer id.
type CustomerResolver interface {
	CustomerID(ctx context.Context, token string) (int64, error)
}

// upstreamError is implemented by commerce backend errors.
type upstreamError interface {
	error
	UserMessage() string
	UpstreamStatus() int
	Detail() any
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// LoginLimiter throttles login attempts per username. Nil disables it.
	LoginLimiter *httpmiddleware.Limiter
	// MaxBodyBytes caps request bodies; 1 MiB when zero.
	MaxBodyBytes int64
}

// Handler serves the /api routes.
type Handler struct {
	orders    OrderCreator
	auth      auth.Authenticator
	catalog   product.Catalog
	customers CustomerResolver

	loginLimiter *httpmiddleware.Limiter
	maxBody      int64
}

// NewHandler constructs a Handler. customers may be nil, in which case
// orders are always placed as guest orders.
func NewHandler(
	cfg HandlerConfig,
	orders OrderCreator,
	authn auth.Authenticator,
	catalog product.Catalog,
	customers CustomerResolver,
) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		orders:       orders,
		auth:         authn,
		catalog:      catalog,
		customers:    customers,
		loginLimiter: cfg.LoginLimiter,
		maxBody:      cfg.MaxBodyBytes,
	}
}

// Routes registers the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/order", h.PlaceOrder)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
	})
}

// decode reads a JSON body into v. On failure it writes a 400 and returns
// false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(v); err != nil {
		httpmiddleware.WriteJSON(w, http.StatusBadRequest, httpmiddleware.ErrorBody{
			Message: "invalid request body",
			Detail:  err.Error(),
		})
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
