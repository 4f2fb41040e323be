package payment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/payments/application/commands"
)

var (
	moduleID    string
	amountMinor int64
	currency    string
	method      string
	phoneNumber string
	paymentType string
)

var submitCmd = &cobra.Command{
	Use:   "submit [reference]",
	Short: "Submit a payment reference for verification",
	Long: `Record an out-of-band payment by its transaction reference.

The payment sits in the verification queue until a reviewer verifies
or rejects it. The reference must be unique; resubmitting the same
transaction is refused.

Methods: mobile_money, bank_transfer, card
Types:   subscription, renewal, upgrade

Examples:
  modulus payment submit TXN-48213 --module ledger --amount 499 --method mobile_money --phone +254700000001
  modulus payment submit SEPA-9917 --module workshops --amount 799 --method bank_transfer`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubmitPaymentHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Submitting payments requires a database connection.")
			return nil
		}

		result, err := app.SubmitPaymentHandler.Handle(cmd.Context(), commands.SubmitPaymentCommand{
			UserID:      app.CurrentUserID,
			ModuleID:    moduleID,
			AmountMinor: amountMinor,
			Currency:    currency,
			Method:      method,
			Reference:   args[0],
			PhoneNumber: phoneNumber,
			PaymentType: paymentType,
		})
		if err != nil {
			return fmt.Errorf("failed to submit payment: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Payment submitted for verification\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", result.PaymentID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Status: %s\n", result.Status)

		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&moduleID, "module", "m", "", "module the payment is for")
	submitCmd.Flags().Int64VarP(&amountMinor, "amount", "a", 0, "amount in minor units (cents)")
	submitCmd.Flags().StringVar(&currency, "currency", "EUR", "ISO currency code")
	submitCmd.Flags().StringVar(&method, "method", "mobile_money", "payment method (mobile_money, bank_transfer, card)")
	submitCmd.Flags().StringVar(&phoneNumber, "phone", "", "paying phone number (mobile money)")
	submitCmd.Flags().StringVar(&paymentType, "type", "subscription", "payment type (subscription, renewal, upgrade)")
	_ = submitCmd.MarkFlagRequired("module")
	_ = submitCmd.MarkFlagRequired("amount")
}
