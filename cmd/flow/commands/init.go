package commands

import (
	"github.com/spf13/cobra"

	"github.com/foundrycloud/flow/cmd/flow/handlers"
)

// Init returns the command for generating a starter task definition.
func Init() *cobra.Command {
	var opts handlers.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter task definition",
		Long: `Create a starter task definition file.

Runs an interactive wizard when attached to a terminal, asking for the
task name, GPU requirements, priority and ports. In non-interactive
sessions a documented default definition is written instead.

Examples:
  # Create flow.yaml in the current directory
  flow init

  # Write to a different path, replacing an existing file
  flow init --output tasks/train.yaml --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "flow.yaml", "Path of the file to create")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite the output file if it exists")

	return cmd
}
