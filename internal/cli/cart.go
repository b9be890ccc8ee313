package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/storefront/internal/domain/cart"
)

func newCartCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
	}
	cmd.AddCommand(
		newCartListCommand(e),
		newCartAddCommand(e),
		newCartRemoveCommand(e),
		newCartQtyCommand(e),
		newCartClearCommand(e),
	)
	return cmd
}

func newCartListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cart lines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printCart(cmd.OutOrStdout(), e.cart.Lines())
			return nil
		},
	}
}

func newCartAddCommand(e *env) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			p, err := e.api.Get(cmd.Context(), id)
			if err != nil {
				return errors.Wrap(err, "load product")
			}
			e.cart.Add(cmd.Context(), p.CartLine(), qty)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s. Cart has %d item(s).\n", p.Name, e.cart.Count())
			return nil
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	return cmd
}

func newCartRemoveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <product-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a product from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e.cart.Remove(cmd.Context(), cart.ProductID(args[0]))
			printCart(cmd.OutOrStdout(), e.cart.Lines())
			return nil
		},
	}
}

func newCartQtyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "qty <product-id> <quantity>",
		Short: "Set the quantity of a cart line (minimum 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "quantity %q", args[1])
			}
			id := cart.ProductID(args[0])
			if e.cart.Lines().Index(id) < 0 {
				return errors.Errorf("product %s is not in the cart", id)
			}
			e.cart.SetQty(cmd.Context(), id, n)
			printCart(cmd.OutOrStdout(), e.cart.Lines())
			return nil
		},
	}
}

func newCartClearCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e.cart.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
			return nil
		},
	}
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func printCart(w io.Writer, lines cart.Lines) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.ID, l.Name, l.Price.StringFixed(2), l.Qty, l.Total().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t%s\n", lines.Count(), lines.Subtotal().StringFixed(2))
	_ = tw.Flush()
}
