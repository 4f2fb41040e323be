package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the module catalog",
	Long:  `List the available modules, their tiers, prices, and usage caps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.CatalogRegistry == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog requires an initialized application.")
			return nil
		}

		modules := app.CatalogRegistry.Modules()
		for i, module := range modules {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", module.Name, module.ID)
			if module.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", module.Description)
			}
			for _, tier := range module.Tiers {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s/month, %s/year\n",
					tier.Name, tier.Monthly, tier.Annual)
				if len(tier.Limits) > 0 {
					keys := make([]string, 0, len(tier.Limits))
					for key := range tier.Limits {
						keys = append(keys, key)
					}
					sort.Strings(keys)
					caps := make([]string, 0, len(keys))
					for _, key := range keys {
						caps = append(caps, fmt.Sprintf("%s %d", key, tier.Limits[key]))
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %-12s caps: %s\n", "", strings.Join(caps, ", "))
				}
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
