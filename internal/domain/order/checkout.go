package order

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrSubmissionInFlight is returned when Submit is called while a previous
// submission has not finished.
var ErrSubmissionInFlight = errors.New("order submission already in progress")

// GenericFailureMessage is shown when the upstream gave no usable message.
const GenericFailureMessage = "order submission failed"

// State is the checkout submission state.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Submission is the body sent to the order API.
type Submission struct {
	Cart        cart.Lines      `json:"cart"`
	Form        Form            `json:"form"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`

	IdempotencyKey string `json:"-"`
	Token          string `json:"-"`
}

// Submitter sends a submission to the order API.
type Submitter interface {
	SubmitOrder(ctx context.Context, s Submission) (*Created, error)
}

// CartSource is the part of the cart store used at checkout.
type CartSource interface {
	Lines() cart.Lines
	Clear(ctx context.Context)
}

// SubmitError is returned when the order API rejected or failed the
// submission. Message is safe to show to the customer.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// FailureMessage extracts the customer-facing message from err, falling back
// to GenericFailureMessage.
func FailureMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return GenericFailureMessage
}

// CheckoutOption configures a Checkout.
type CheckoutOption func(*Checkout)

// WithCheckoutLogger sets the logger.
func WithCheckoutLogger(lg *zap.Logger) CheckoutOption {
	return func(c *Checkout) { c.lg = lg }
}

// WithTokenSource supplies the bearer token attached to submissions.
func WithTokenSource(token func() string) CheckoutOption {
	return func(c *Checkout) { c.token = token }
}

// WithMinimumOrder overrides MinimumOrder.
func WithMinimumOrder(amount decimal.Decimal) CheckoutOption {
	return func(c *Checkout) { c.minimum = amount }
}

// WithPendingKey resumes the idempotency key of an earlier failed attempt,
// possibly made by another process.
func WithPendingKey(key string) CheckoutOption {
	return func(c *Checkout) { c.key = key }
}

// Checkout drives one customer's order submission. At most one submission
// is in flight at a time. The idempotency key survives failed attempts so a
// retry cannot create a second order, and is replaced after a success.
type Checkout struct {
	cart    CartSource
	sub     Submitter
	lg      *zap.Logger
	token   func() string
	minimum decimal.Decimal
	newKey  func() string

	mu      sync.Mutex
	state   State
	key     string
	created *Created
	message string
}

// NewCheckout creates a Checkout in the idle state.
func NewCheckout(c CartSource, s Submitter, opts ...CheckoutOption) *Checkout {
	co := &Checkout{
		cart:    c,
		sub:     s,
		lg:      zap.NewNop(),
		token:   func() string { return "" },
		minimum: MinimumOrder,
		newKey:  uuid.NewString,
	}
	for _, fn := range opts {
		fn(co)
	}
	if co.key == "" {
		co.key = co.newKey()
	}
	return co
}

// Key returns the idempotency key the next submission will use.
func (c *Checkout) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// State returns the current submission state.
func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOrder returns the order created by the last successful submission.
func (c *Checkout) LastOrder() *Created {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// LastError returns the message of the last failed submission.
func (c *Checkout) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Quote prices the current cart for the given area input.
func (c *Checkout) Quote(area string) Quote {
	return Price(c.cart.Lines(), ResolveArea(area).Area)
}

// Submit validates f against the current cart and sends the order. A
// validation failure is returned as is and leaves the state untouched.
// Upstream failures are returned as *SubmitError.
func (c *Checkout) Submit(ctx context.Context, f Form) (*Created, error) {
	lines := c.cart.Lines()
	if err := Validate(lines, f, c.minimum); err != nil {
		return nil, err
	}
	q := Price(lines, ResolveArea(f.DeliveryArea).Area)

	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	c.state = StateSubmitting
	key := c.key
	c.mu.Unlock()

	lg := c.lg.With(zap.String("idempotency_key", key))
	lg.Info("Submitting order",
		zap.Int("lines", len(lines)),
		zap.String("total", q.Total.String()),
	)

	created, err := c.sub.SubmitOrder(ctx, Submission{
		Cart:           lines,
		Form:           f,
		ShippingFee:    q.ShippingFee,
		Tax:            q.Tax,
		IdempotencyKey: key,
		Token:          c.token(),
	})

	if err == nil && created == nil {
		err = errors.New("empty order response")
	}
	if err != nil {
		msg := FailureMessage(err)
		c.mu.Lock()
		c.state = StateFailed
		c.message = msg
		c.mu.Unlock()

		lg.Warn("Order submission failed", zap.Error(err))
		return nil, &SubmitError{Message: msg, Err: err}
	}

	// Cart subscribers may read the checkout state, so clear outside mu.
	c.cart.Clear(ctx)

	c.mu.Lock()
	c.state = StateSucceeded
	c.created = created
	c.message = ""
	c.key = c.newKey()
	c.mu.Unlock()

	lg.Info("Order created", zap.Int64("order_id", created.ID))
	return created, nil
}
