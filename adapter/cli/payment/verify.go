package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/payments/application/commands"
)

var settledMinor int64

var verifyCmd = &cobra.Command{
	Use:   "verify [payment-id]",
	Short: "Verify a submitted payment",
	Long: `Mark a submitted payment as verified against the provider statement.

Requires the payments:verify permission. Verification activates the
matching pending subscription. Pass --settled with the amount found on
the statement to reject short payments; omitted means the full amount
settled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.VerifyPaymentHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Verifying payments requires a database connection.")
			return nil
		}

		paymentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid payment id: %w", err)
		}

		err = app.VerifyPaymentHandler.Handle(cmd.Context(), commands.VerifyPaymentCommand{
			PaymentID:          paymentID,
			VerifierID:         app.CurrentUserID,
			SettledAmountMinor: settledMinor,
		})
		if err != nil {
			return fmt.Errorf("failed to verify payment: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Payment %s verified\n", paymentID)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Int64Var(&settledMinor, "settled", 0, "settled amount in minor units seen on the statement")
}
