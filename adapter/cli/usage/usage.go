// Package usage provides the usage metering command group.
package usage

import "github.com/spf13/cobra"

// Cmd is the usage command group.
var Cmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect module usage",
	Long:  `Show cached usage metrics per module and invalidate stale caches.`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(clearCmd)
}
