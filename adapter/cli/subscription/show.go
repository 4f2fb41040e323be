package subscription

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/queries"
)

var showCmd = &cobra.Command{
	Use:     "show [module]",
	Aliases: []string{"status"},
	Short:   "Show the open subscription for a module",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetSubscriptionHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Showing subscriptions requires a database connection.")
			return nil
		}

		sub, err := app.GetSubscriptionHandler.Handle(cmd.Context(), queries.GetSubscriptionQuery{
			UserID:   app.CurrentUserID,
			ModuleID: args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Subscription: %s\n", sub.ID)
		fmt.Fprintf(out, "  Module: %s\n", sub.ModuleID)
		fmt.Fprintf(out, "  Tier: %s\n", sub.Tier)
		fmt.Fprintf(out, "  Status: %s\n", sub.Status)
		fmt.Fprintf(out, "  Cycle: %s\n", sub.BillingCycle)
		fmt.Fprintf(out, "  Amount: %d.%02d %s\n", sub.AmountMinor/100, sub.AmountMinor%100, sub.Currency)
		if sub.StartedAt != nil {
			fmt.Fprintf(out, "  Started: %s\n", sub.StartedAt.Local().Format(time.RFC1123))
		}
		if sub.CurrentPeriodEnd != nil {
			fmt.Fprintf(out, "  Period ends: %s\n", sub.CurrentPeriodEnd.Local().Format(time.RFC1123))
		}
		if sub.CancelAtPeriodEnd {
			fmt.Fprintln(out, "  Cancels at period end")
		}
		if sub.CancellationReason != "" {
			fmt.Fprintf(out, "  Cancellation reason: %s\n", sub.CancellationReason)
		}
		if sub.UpgradedAt != nil {
			fmt.Fprintf(out, "  Last upgraded: %s\n", sub.UpgradedAt.Local().Format(time.RFC1123))
		}

		return nil
	},
}
