package usage

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
)

var clearAll bool

var clearCmd = &cobra.Command{
	Use:     "clear [module]",
	Aliases: []string{"clear-cache"},
	Short:   "Invalidate cached usage",
	Long: `Drop the cached usage for a module so the next read refetches from
the module's provider. Use --all to clear every module's cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UsageAggregator == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Usage metering requires Redis.")
			return nil
		}

		if clearAll {
			if err := app.UsageAggregator.ClearAllCaches(cmd.Context(), app.CurrentUserID); err != nil {
				return fmt.Errorf("failed to clear usage caches: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All usage caches cleared.")
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("specify a module or use --all")
		}

		if err := app.UsageAggregator.ClearCache(cmd.Context(), app.CurrentUserID, args[0]); err != nil {
			return fmt.Errorf("failed to clear usage cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Usage cache cleared for %s.\n", args[0])
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "clear caches for all modules")
}
