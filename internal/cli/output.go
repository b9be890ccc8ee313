package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// userError reduces err to the message a customer should see.
func userError(err error) error {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		return errors.Errorf("%s: %s", vErr.Field, vErr.Err.Error())
	}
	for _, known := range []error{auth.ErrMissingCredentials, order.ErrSubmissionInFlight} {
		if errors.Is(err, known) {
			return known
		}
	}
	return errors.New(order.FailureMessage(err))
}

func printSession(w io.Writer, s auth.Session) {
	if !s.LoggedIn() {
		fmt.Fprintln(w, "Not logged in.")
		return
	}
	fmt.Fprintf(w, "%s <%s>", displayName(s.User), s.User.Email)
	if s.User.CustomerID != 0 {
		fmt.Fprintf(w, ", customer #%d", s.User.CustomerID)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(w, ", session expires %s", s.ExpiresAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(w)
}

func printQuote(w io.Writer, area order.AreaChoice, q order.Quote, minimum decimal.Decimal) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	if area.Selected() {
		fmt.Fprintf(tw, "Area:\t%s\t\n", area.Label())
	}
	fmt.Fprintf(tw, "Subtotal:\t%s\t\n", q.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "Shipping:\t%s\t\n", q.ShippingFee.StringFixed(2))
	fmt.Fprintf(tw, "Tax:\t%s\t\n", q.Tax.StringFixed(2))
	fmt.Fprintf(tw, "Total:\t%s\t\n", q.Total.StringFixed(2))
	_ = tw.Flush()

	if q.Subtotal.LessThan(minimum) {
		fmt.Fprintf(w, "Add %s more to reach the %s minimum order.\n",
			minimum.Sub(q.Subtotal).StringFixed(2), minimum.StringFixed(2))
	}
	if area.Recognized() && q.ShippingFee.IsPositive() {
		fmt.Fprintf(w, "Free delivery to %s from %s.\n", area.Label(), area.Area.FreeShippingThreshold.StringFixed(2))
	}
}

func printProducts(w io.Writer, products []product.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTORAGE\tSTOCK")
	for _, p := range products {
		stock := "in stock"
		if !p.InStock {
			stock = "sold out"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Currency, tags(p.StorageTags), stock)
	}
	_ = tw.Flush()
}

func tags(t []string) string {
	if len(t) == 0 {
		return "-"
	}
	return strings.Join(t, ", ")
}
