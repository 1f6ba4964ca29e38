package commands

import (
	"github.com/spf13/cobra"

	"github.com/foundrycloud/flow/cmd/flow/handlers"
)

// Submit returns the command for submitting a task as a spot bid.
//
// Required flags:
//
//	--config, -c: Path to the task definition YAML file
//
// Environment variables:
//
//	FOUNDRY_EMAIL, FOUNDRY_PASSWORD: Foundry credentials (required)
//	FOUNDRY_PROJECT_NAME, FOUNDRY_SSH_KEY_NAME: default project and key
func Submit() *cobra.Command {
	var opts handlers.SubmitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task to the spot market",
		Long: `Submit a task to the Foundry spot market.

Reads the task definition, composes the instance startup script, finds an
auction matching the requested resources, and places a bid.

Examples:
  # Submit the task described in flow.yaml
  flow submit -c flow.yaml

  # Submit into a specific project with a specific SSH key
  flow submit -c flow.yaml --project research --ssh-key laptop

  # Allow partial fulfillment in chunks of 2 instances
  flow submit -c flow.yaml --chunk-size 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Submit(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "flow.yaml", "Path to the task definition file")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Foundry project name (overrides config and environment)")
	cmd.Flags().StringVar(&opts.SSHKey, "ssh-key", "", "Foundry SSH key name (overrides config and environment)")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "Split the order into bids of at most this many instances")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}
