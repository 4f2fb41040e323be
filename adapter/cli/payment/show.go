package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/payments/application/queries"
)

var showCmd = &cobra.Command{
	Use:   "show [payment-id]",
	Short: "Show a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetPaymentHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Showing payments requires a database connection.")
			return nil
		}

		paymentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid payment id: %w", err)
		}

		p, err := app.GetPaymentHandler.Handle(cmd.Context(), queries.GetPaymentQuery{
			PaymentID: paymentID,
		})
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Payment: %s\n", p.ID)
		fmt.Fprintf(out, "  Module: %s\n", p.ModuleID)
		fmt.Fprintf(out, "  Reference: %s\n", p.Reference)
		fmt.Fprintf(out, "  Amount: %d.%02d %s\n", p.AmountMinor/100, p.AmountMinor%100, p.Currency)
		fmt.Fprintf(out, "  Method: %s\n", p.Method)
		fmt.Fprintf(out, "  Type: %s\n", p.PaymentType)
		fmt.Fprintf(out, "  Status: %s\n", p.Status)
		if p.PhoneNumber != "" {
			fmt.Fprintf(out, "  Phone: %s\n", p.PhoneNumber)
		}
		if p.VerifiedAt != nil {
			fmt.Fprintf(out, "  Reviewed: %s\n", p.VerifiedAt.Local().Format(time.RFC1123))
		}
		if p.RejectedReason != "" {
			fmt.Fprintf(out, "  Rejection reason: %s\n", p.RejectedReason)
		}
		fmt.Fprintf(out, "  Submitted: %s\n", p.CreatedAt.Local().Format(time.RFC1123))

		return nil
	},
}
