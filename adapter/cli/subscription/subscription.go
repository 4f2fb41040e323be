// Package subscription provides the subscription command group.
package subscription

import "github.com/spf13/cobra"

// Cmd is the subscription command group.
var Cmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage module subscriptions",
	Long:  `Subscribe to modules, inspect subscription status, upgrade tiers, and cancel.`,
	Aliases: []string{"sub"},
}

func init() {
	Cmd.AddCommand(subscribeCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(upgradeCmd)
	Cmd.AddCommand(cancelCmd)
}
