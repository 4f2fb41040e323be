package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/payments/application/commands"
)

var rejectReason string

var rejectCmd = &cobra.Command{
	Use:   "reject [payment-id]",
	Short: "Reject a submitted payment",
	Long: `Reject a submitted payment that could not be matched to the provider
statement. A reason is required; it is surfaced to the subscriber.

Requires the payments:verify permission.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.RejectPaymentHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Rejecting payments requires a database connection.")
			return nil
		}

		paymentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid payment id: %w", err)
		}

		err = app.RejectPaymentHandler.Handle(cmd.Context(), commands.RejectPaymentCommand{
			PaymentID:  paymentID,
			VerifierID: app.CurrentUserID,
			Reason:     rejectReason,
		})
		if err != nil {
			return fmt.Errorf("failed to reject payment: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Payment %s rejected\n", paymentID)
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the payment could not be matched")
	_ = rejectCmd.MarkFlagRequired("reason")
}
