package library

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrikhq/modulus/adapter/cli"
)

var accessCmd = &cobra.Command{
	Use:     "access",
	Aliases: []string{"check"},
	Short:   "Check whether you can access the library",
	Long: `Resolve library access for the current user.

Access requires a starter kit plus either an active library
subscription or an open free-access window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.LibraryGate == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Library access checks require a database connection.")
			return nil
		}

		decision, err := app.LibraryGate.CheckAccess(cmd.Context(), app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("failed to check access: %w", err)
		}

		if decision.Allowed {
			fmt.Fprintln(cmd.OutOrStdout(), "Library access: granted")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Library access: denied")
		if decision.Message != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", decision.Message)
		}
		return nil
	},
}
