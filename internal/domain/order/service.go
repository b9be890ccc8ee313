package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Creator creates orders in the commerce backend.
type Creator interface {
	CreateOrder(ctx context.Context, req *Request) (*Created, error)
}

// Entry is a journaled order.
type Entry struct {
	IdempotencyKey string
	Request        *Request
	Created        Created
	RecordedAt     time.Time
}

// Journal remembers created orders by idempotency key so that a repeated
// submission returns the first order instead of creating another one.
type Journal interface {
	Lookup(ctx context.Context, key string) (*Created, bool, error)
	Record(ctx context.Context, e Entry) error
}

// CreateRequest is a server-side order submission.
type CreateRequest struct {
	Cart           cart.Lines
	Form           Form
	ShippingFee    decimal.Decimal
	Tax            decimal.Decimal
	IdempotencyKey string
	CustomerID     int64
}

// ServiceConfig holds non-dependency configuration for the Service.
type ServiceConfig struct {
	// TaxRateID, when set, links the tax amount to a backend tax rate.
	TaxRateID    int64
	MinimumOrder decimal.Decimal
	// MeterProvider defaults to a no-op provider.
	MeterProvider metric.MeterProvider
}

// Service validates, assembles and forwards orders to the backend.
type Service struct {
	creator Creator
	journal Journal
	cfg     ServiceConfig
	group   singleflight.Group

	created  metric.Int64Counter
	failed   metric.Int64Counter
	replayed metric.Int64Counter
}

// NewService creates an order Service.
func NewService(cfg ServiceConfig, creator Creator, journal Journal) (*Service, error) {
	if cfg.MinimumOrder.IsZero() {
		cfg.MinimumOrder = MinimumOrder
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = noop.NewMeterProvider()
	}

	s := &Service{
		creator: creator,
		journal: journal,
		cfg:     cfg,
	}

	meter := cfg.MeterProvider.Meter("github.com/xenking/storefront/internal/domain/order")
	var err error
	if s.created, err = meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders created in the commerce backend"),
	); err != nil {
		return nil, errors.Wrap(err, "created counter")
	}
	if s.failed, err = meter.Int64Counter("storefront.orders.failed",
		metric.WithDescription("Order submissions that did not produce an order"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	if s.replayed, err = meter.Int64Counter("storefront.orders.replayed",
		metric.WithDescription("Submissions answered from the idempotency journal"),
	); err != nil {
		return nil, errors.Wrap(err, "replayed counter")
	}

	return s, nil
}

// Create validates req, then creates the order upstream unless the
// idempotency key has already produced one.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	lg := zctx.From(ctx)

	if err := Validate(req.Cart, req.Form, s.cfg.MinimumOrder); err != nil {
		s.fail(ctx, "validation")
		return nil, err
	}

	area := ResolveArea(req.Form.DeliveryArea)
	if !area.Recognized() {
		lg.Warn("Unrecognized delivery area, passing through", zap.String("area", area.Raw))
	}
	if p := ClassifyPayment(req.Form.Payment); p.Kind == PaymentUnrecognized {
		lg.Warn("Unrecognized payment method, defaulting to cash on delivery", zap.String("payment", p.Raw))
	}
	if q := Price(req.Cart, area.Area); !q.ShippingFee.Equal(req.ShippingFee) || !q.Tax.Equal(req.Tax) {
		lg.Warn("Client quote differs from server quote",
			zap.String("client_shipping_fee", req.ShippingFee.String()),
			zap.String("client_tax", req.Tax.String()),
			zap.String("server_shipping_fee", q.ShippingFee.String()),
			zap.String("server_tax", q.Tax.String()),
		)
	}

	payload, err := Assemble(AssembleInput{
		Lines:          req.Cart,
		Form:           req.Form,
		ShippingFee:    req.ShippingFee,
		Tax:            req.Tax,
		CustomerID:     req.CustomerID,
		TaxRateID:      s.cfg.TaxRateID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		s.fail(ctx, "assemble")
		return nil, err
	}

	if req.IdempotencyKey == "" {
		return s.create(ctx, payload, "")
	}

	// Concurrent submissions with one key share a single upstream call.
	v, err, _ := s.group.Do(req.IdempotencyKey, func() (any, error) {
		prev, ok, err := s.journal.Lookup(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, errors.Wrap(err, "lookup journal")
		}
		if ok {
			lg.Info("Replaying journaled order",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", prev.ID),
			)
			s.replayed.Add(ctx, 1)
			return prev, nil
		}
		return s.create(ctx, payload, req.IdempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Created), nil
}

func (s *Service) create(ctx context.Context, payload *Request, key string) (*Created, error) {
	lg := zctx.From(ctx)

	created, err := s.creator.CreateOrder(ctx, payload)
	if err != nil {
		s.fail(ctx, "upstream")
		return nil, errors.Wrap(err, "create order")
	}

	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", payload.PaymentMethod),
	))
	lg.Info("Order created",
		zap.Int64("order_id", created.ID),
		zap.String("number", created.Number),
		zap.String("status", created.Status),
	)

	if key != "" {
		err := s.journal.Record(ctx, Entry{
			IdempotencyKey: key,
			Request:        payload,
			Created:        *created,
			RecordedAt:     time.Now(),
		})
		if err != nil {
			// The order exists upstream; a lost journal entry only weakens
			// duplicate protection.
			lg.Error("Journal record failed", zap.Error(err), zap.Int64("order_id", created.ID))
		}
	}
	return created, nil
}

func (s *Service) fail(ctx context.Context, reason string) {
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
