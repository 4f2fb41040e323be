package payment

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
	"github.com/fabrikhq/modulus/internal/payments/application/queries"
)

var pendingOnly bool

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List payments",
	Long:    `List your payments, or the pending verification queue with --pending.`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListPaymentsHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Listing payments requires a database connection.")
			return nil
		}

		var (
			payments []*queries.PaymentDTO
			err      error
		)
		if pendingOnly {
			payments, err = app.ListPendingPaymentsHandler.Handle(cmd.Context(), queries.ListPendingPaymentsQuery{})
		} else {
			payments, err = app.ListPaymentsHandler.Handle(cmd.Context(), queries.ListPaymentsQuery{
				UserID: app.CurrentUserID,
			})
		}
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		if len(payments) == 0 {
			if pendingOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "No payments awaiting verification.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No payments found.")
			}
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODULE\tREFERENCE\tAMOUNT\tMETHOD\tSTATUS\tSUBMITTED")
		for _, p := range payments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d.%02d %s\t%s\t%s\t%s\n",
				p.ID, p.ModuleID, p.Reference,
				p.AmountMinor/100, p.AmountMinor%100, p.Currency,
				p.Method, p.Status, p.CreatedAt.Local().Format(time.DateOnly))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&pendingOnly, "pending", false, "show the pending verification queue")
}
