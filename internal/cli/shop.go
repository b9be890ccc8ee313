package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/statestore"
)

// pendingKeyKey stores the idempotency key of a failed checkout so the next
// attempt, from any process, reuses it.
const pendingKeyKey = "checkout_key"

func newProductsCommand(e *env) *cobra.Command {
	var q product.Query
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := product.NewLoader(e.api)
			defer loader.Stop()

			products, err := loader.Load(cmd.Context(), q)
			if err != nil {
				return userError(err)
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.Search, "search", "s", "", "search term")
	f.StringVarP(&q.Category, "category", "c", "", "category slug or id")
	f.IntVar(&q.Page, "page", 0, "page number")
	f.IntVar(&q.PerPage, "per-page", 0, "products per page")
	return cmd
}

func newAreasCommand(*env) *cobra.Command {
	return &cobra.Command{
		Use:   "areas",
		Short: "List delivery areas and fees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tAREA\tFEE\tFREE FROM\tTAX")
			for _, a := range order.Areas() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\n",
					a.Slug, a.Label, a.Fee.StringFixed(2), a.FreeShippingThreshold.StringFixed(2), a.TaxPercent.String())
			}
			return tw.Flush()
		},
	}
}

func newQuoteCommand(e *env) *cobra.Command {
	var area string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price the cart for a delivery area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			choice := order.ResolveArea(area)
			q := order.Price(e.cart.Lines(), choice.Area)
			printQuote(cmd.OutOrStdout(), choice, q, order.MinimumOrder)
			return nil
		},
	}
	cmd.Flags().StringVarP(&area, "area", "a", "", "delivery area slug or name")
	return cmd
}

func newCheckoutCommand(e *env) *cobra.Command {
	var f order.Form
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess := e.auth.Get()
			if f.Email == "" && sess.LoggedIn() {
				f.Email = sess.User.Email
			}

			pending, _, err := e.kv.Get(ctx, pendingKeyKey)
			if err != nil {
				e.lg.Warn("Read pending checkout key failed")
			}
			co := order.NewCheckout(e.cart, e.api,
				order.WithCheckoutLogger(e.lg.Named("checkout")),
				order.WithTokenSource(func() string { return e.auth.Get().Token }),
				order.WithPendingKey(pending),
			)

			created, err := co.Submit(ctx, f)
			if err != nil {
				var sErr *order.SubmitError
				if errors.As(err, &sErr) {
					_ = e.kv.Set(ctx, pendingKeyKey, co.Key())
				}
				return userError(err)
			}
			_ = e.kv.Remove(ctx, pendingKeyKey)

			fmt.Fprintf(cmd.OutOrStdout(), "Order #%s placed (%s), total %s.\n",
				created.Number, created.Status, created.Total.StringFixed(2))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "recipient name")
	fl.StringVar(&f.Phone, "phone", "", "contact phone")
	fl.StringVar(&f.Email, "email", "", "contact email (default: logged-in user)")
	fl.StringVar(&f.Payment, "payment", "", "payment method, e.g. cod, e-transfer")
	fl.StringVarP(&f.DeliveryArea, "area", "a", "", "delivery area slug or name")
	fl.StringVar(&f.Address, "address", "", "delivery address")
	fl.StringVar(&f.WeChat, "wechat", "", "WeChat id")
	fl.StringVar(&f.ContactOther, "contact-other", "", "other contact details")
	fl.BoolVar(&f.Subscribe, "subscribe", false, "subscribe to the newsletter")
	return cmd
}

func newWatchCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print cart and session changes made by other shopctl processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			unsubCart := e.cart.Subscribe(func(lines cart.Lines) {
				fmt.Fprintf(out, "cart: %d item(s), subtotal %s\n", lines.Count(), lines.Subtotal().StringFixed(2))
			})
			defer unsubCart()
			unsubAuth := e.auth.Subscribe(func(s auth.Session) {
				fmt.Fprint(out, "session: ")
				printSession(out, s)
			})
			defer unsubAuth()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return e.cart.Watch(ctx) })
			g.Go(func() error { return e.auth.Watch(ctx) })

			err := g.Wait()
			if errors.Is(err, statestore.ErrWatchUnsupported) {
				return errors.Errorf("backend %q cannot report changes", e.cfg.Backend)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
