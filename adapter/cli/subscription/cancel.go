package subscription

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
)

var (
	cancelReason    string
	cancelImmediate bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [module]",
	Short: "Cancel a subscription",
	Long: `Cancel the open subscription for a module.

By default the subscription stays active until the end of the paid
period. Use --now to cancel immediately.

Examples:
  modulus subscription cancel workshops
  modulus subscription cancel ledger --now --reason "switching plans"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CancelSubscriptionHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelling requires a database connection.")
			return nil
		}

		result, err := app.CancelSubscriptionHandler.Handle(cmd.Context(), commands.CancelSubscriptionCommand{
			UserID:    app.CurrentUserID,
			ModuleID:  args[0],
			Reason:    cancelReason,
			Immediate: cancelImmediate,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel: %w", err)
		}

		if result.EffectiveAt != nil && result.Status != "cancelled" {
			fmt.Fprintf(cmd.OutOrStdout(), "Subscription will cancel on %s\n",
				result.EffectiveAt.Local().Format(time.RFC1123))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Subscription cancelled\n")
		}

		return nil
	},
}

func init() {
	cancelCmd.Flags().StringVar(&cancelReason, "reason", "", "cancellation reason")
	cancelCmd.Flags().BoolVar(&cancelImmediate, "now", false, "cancel immediately instead of at period end")
}
