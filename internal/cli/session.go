package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hanko-field/bookstore/internal/di"
	domain "github.com/hanko-field/bookstore/internal/domain"
)

// SessionStatusView is the printed checkout session status.
type SessionStatusView struct {
	SessionID     string  `json:"sessionId" yaml:"sessionId"`
	PaymentStatus string  `json:"paymentStatus" yaml:"paymentStatus"`
	Status        string  `json:"status" yaml:"status"`
	AmountTotal   float64 `json:"amountTotal,omitempty" yaml:"amountTotal,omitempty"`
	Currency      string  `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Query checkout sessions at the payment gateway",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status <session-id>",
		Short: "Print the payment status of a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withContainer(cmd.Context(), func(c *di.Container) error {
				status, err := c.Services.Checkout.SessionStatus(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "query session", err)
				}
				view := SessionStatusView{
					SessionID:     status.SessionID,
					PaymentStatus: status.PaymentStatus,
					Status:        string(status.Status),
					Currency:      status.Currency,
				}
				if status.AmountTotal > 0 {
					view.AmountTotal = domain.MajorUnits(status.AmountTotal)
				}
				return render(cmd.OutOrStdout(), rootOpts.Output, view, func(w io.Writer) {
					fmt.Fprintln(w, "SESSION\tPAYMENT\tSTATUS\tAMOUNT")
					fmt.Fprintf(w, "%s\t%s\t%s\t%.2f %s\n", view.SessionID, view.PaymentStatus, view.Status, view.AmountTotal, view.Currency)
				})
			})
		},
	})
	return cmd
}
