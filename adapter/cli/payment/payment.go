// Package payment provides the payment command group.
package payment

import "github.com/spf13/cobra"

// Cmd is the payment command group.
var Cmd = &cobra.Command{
	Use:   "payment",
	Short: "Manage payments and reconciliation",
	Long:  `Submit payment references, list the verification queue, and verify or reject submissions.`,
	Aliases: []string{"pay"},
}

func init() {
	Cmd.AddCommand(submitCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(verifyCmd)
	Cmd.AddCommand(rejectCmd)
}
