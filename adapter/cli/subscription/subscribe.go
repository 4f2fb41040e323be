package subscription

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
)

var (
	tier         string
	billingCycle string
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe [module]",
	Short: "Subscribe to a module",
	Long: `Subscribe to a module at a catalog tier.

The subscription starts pending. Submit the matching payment with
"modulus payment submit"; once a reviewer verifies it the subscription
activates.

Examples:
  modulus subscription subscribe ledger --tier basic
  modulus subscription subscribe workshops --tier unlimited --cycle annual`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubscribeHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Subscribing requires a database connection.")
			return nil
		}

		result, err := app.SubscribeHandler.Handle(cmd.Context(), commands.SubscribeCommand{
			UserID:       app.CurrentUserID,
			ModuleID:     args[0],
			Tier:         tier,
			BillingCycle: billingCycle,
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Subscription created (pending payment)\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", result.SubscriptionID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Amount due: %d.%02d %s\n",
			result.AmountMinor/100, result.AmountMinor%100, result.Currency)

		return nil
	},
}

func init() {
	subscribeCmd.Flags().StringVarP(&tier, "tier", "t", "", "catalog tier name")
	subscribeCmd.Flags().StringVar(&billingCycle, "cycle", "monthly", "billing cycle (monthly, annual)")
	_ = subscribeCmd.MarkFlagRequired("tier")
}
