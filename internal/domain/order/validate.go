package order

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Validation failures, checked in declaration order.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrIncompleteContact = errors.New("name, phone and email are required")
	ErrMissingArea       = errors.New("delivery area is required")
	ErrIncompleteAddress = errors.New("delivery address is required")
	ErrBelowMinimumOrder = errors.New("order is below the minimum amount")
)

// ValidationError identifies the form field that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate reports the first rule that lines and f violate. Later rules are
// not evaluated.
func Validate(lines cart.Lines, f Form, minimum decimal.Decimal) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "cart", Err: ErrEmptyCart}
	}

	for _, c := range []struct{ field, value string }{
		{"name", f.Name},
		{"phone", f.Phone},
		{"email", f.Email},
	} {
		if strings.TrimSpace(c.value) == "" {
			return &ValidationError{Field: c.field, Err: ErrIncompleteContact}
		}
	}

	if !ResolveArea(f.DeliveryArea).Selected() {
		return &ValidationError{Field: "deliveryArea", Err: ErrMissingArea}
	}
	if strings.TrimSpace(f.Address) == "" {
		return &ValidationError{Field: "address", Err: ErrIncompleteAddress}
	}
	if lines.Subtotal().LessThan(minimum) {
		return &ValidationError{
			Field: "cart",
			Err:   errors.Wrapf(ErrBelowMinimumOrder, "minimum is %s", minimum.String()),
		}
	}
	return nil
}
