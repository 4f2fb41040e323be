// Package library provides the library access command group.
package library

import "github.com/spf13/cobra"

// Cmd is the library command group.
var Cmd = &cobra.Command{
	Use:   "library",
	Short: "Check library access",
}

func init() {
	Cmd.AddCommand(accessCmd)
}
