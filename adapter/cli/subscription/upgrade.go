package subscription

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
)

var upgradeTier string

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [module]",
	Short: "Upgrade an active subscription to a higher tier",
	Long: `Upgrade an active subscription to a higher catalog tier.

Only upward moves are allowed, and current usage must fit within the
target tier's caps.

Examples:
  modulus subscription upgrade ledger --tier pro`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UpgradeSubscriptionHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Upgrading requires a database connection.")
			return nil
		}

		result, err := app.UpgradeSubscriptionHandler.Handle(cmd.Context(), commands.UpgradeSubscriptionCommand{
			UserID:   app.CurrentUserID,
			ModuleID: args[0],
			NewTier:  upgradeTier,
		})
		if err != nil {
			return fmt.Errorf("failed to upgrade: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Upgraded %s: %s -> %s\n", args[0], result.PreviousTier, result.NewTier)
		fmt.Fprintf(cmd.OutOrStdout(), "  New amount: %d.%02d %s\n",
			result.AmountMinor/100, result.AmountMinor%100, result.Currency)

		return nil
	},
}

func init() {
	upgradeCmd.Flags().StringVarP(&upgradeTier, "tier", "t", "", "target tier name")
	_ = upgradeCmd.MarkFlagRequired("tier")
}
