package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanko-field/bookstore/internal/di"
	domain "github.com/hanko-field/bookstore/internal/domain"
)

// CartView is the printed cart shape.
type CartView struct {
	ID          string         `json:"id" yaml:"id"`
	Items       []CartItemView `json:"items" yaml:"items"`
	Total       float64        `json:"total" yaml:"total"`
	TotalItems  int            `json:"totalItems" yaml:"totalItems"`
	LastUpdated string         `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
}

type CartItemView struct {
	ProductID string  `json:"productId" yaml:"productId"`
	Title     string  `json:"title" yaml:"title"`
	Quantity  int     `json:"quantity" yaml:"quantity"`
	Price     float64 `json:"price" yaml:"price"`
	Subtotal  float64 `json:"subtotal" yaml:"subtotal"`
}

func newCartView(cart domain.Cart) CartView {
	view := CartView{
		ID:         cart.ID,
		Items:      make([]CartItemView, 0, len(cart.Items)),
		Total:      domain.MajorUnits(cart.Total),
		TotalItems: cart.TotalItems,
	}
	if !cart.LastUpdated.IsZero() {
		view.LastUpdated = cart.LastUpdated.UTC().Format(time.RFC3339)
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, CartItemView{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     domain.MajorUnits(item.Price),
			Subtotal:  domain.MajorUnits(item.Subtotal()),
		})
	}
	return view
}

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or reset the persisted cart",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the persisted cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withContainer(cmd.Context(), func(c *di.Container) error {
				view := newCartView(c.Services.Cart.ViewCart(cmd.Context()))
				return render(cmd.OutOrStdout(), rootOpts.Output, view, func(w io.Writer) {
					fmt.Fprintln(w, "PRODUCT\tTITLE\tQTY\tPRICE\tSUBTOTAL")
					for _, item := range view.Items {
						fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", item.ProductID, item.Title, item.Quantity, item.Price, item.Subtotal)
					}
					fmt.Fprintf(w, "\t\t%d\t\t%.2f\n", view.TotalItems, view.Total)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the persisted cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withContainer(cmd.Context(), func(c *di.Container) error {
				if err := c.Services.Cart.ClearCart(cmd.Context()); err != nil {
					return WrapExitError(ExitFailure, "clear cart", err)
				}
				result := map[string]bool{"cleared": true}
				return render(cmd.OutOrStdout(), rootOpts.Output, result, func(w io.Writer) {
					fmt.Fprintln(w, "cart cleared")
				})
			})
		},
	})
	return cmd
}
