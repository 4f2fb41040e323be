package usage

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
)

var showCmd = &cobra.Command{
	Use:     "show [module]",
	Aliases: []string{"metrics"},
	Short:   "Show usage metrics for a module",
	Long: `Show the cached usage metrics for a module, including storage used.

Against the caps of your current tier these metrics decide whether
subscribe and upgrade requests are admitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UsageAggregator == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Usage metering requires Redis.")
			return nil
		}

		metrics, err := app.UsageAggregator.GetUsageMetrics(cmd.Context(), app.CurrentUserID, args[0])
		if err != nil {
			return fmt.Errorf("failed to read usage: %w", err)
		}

		if len(metrics) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No usage recorded for %s.\n", args[0])
			return nil
		}

		keys := make([]string, 0, len(metrics))
		for key := range metrics {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "METRIC\tVALUE")
		for _, key := range keys {
			fmt.Fprintf(w, "%s\t%d\n", key, metrics[key])
		}
		return w.Flush()
	},
}
