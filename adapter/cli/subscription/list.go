package subscription

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/subscriptions/application/queries"
)

var openOnly bool

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List subscriptions",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListSubscriptionsHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Listing subscriptions requires a database connection.")
			return nil
		}

		subs, err := app.ListSubscriptionsHandler.Handle(cmd.Context(), queries.ListSubscriptionsQuery{
			UserID:   app.CurrentUserID,
			OpenOnly: openOnly,
		})
		if err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}

		if len(subs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions found. Subscribe with: modulus subscription subscribe <module> --tier <tier>")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODULE\tTIER\tSTATUS\tCYCLE\tAMOUNT\tPERIOD END")
		for _, sub := range subs {
			periodEnd := "-"
			if sub.CurrentPeriodEnd != nil {
				periodEnd = sub.CurrentPeriodEnd.Local().Format(time.DateOnly)
			}
			status := sub.Status
			if sub.CancelAtPeriodEnd {
				status += " (cancelling)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d.%02d %s\t%s\n",
				sub.ModuleID, sub.Tier, status, sub.BillingCycle,
				sub.AmountMinor/100, sub.AmountMinor%100, sub.Currency, periodEnd)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&openOnly, "open", false, "show only pending and active subscriptions")
}
