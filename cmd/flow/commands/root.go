// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the flow CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Submit and manage GPU spot workloads on Foundry",
	}

	// Core commands
	cmd.AddCommand(Submit())
	cmd.AddCommand(Status())
	cmd.AddCommand(Cancel())
	cmd.AddCommand(Init())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
