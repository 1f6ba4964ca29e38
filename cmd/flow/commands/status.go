package commands

import (
	"github.com/spf13/cobra"

	"github.com/foundrycloud/flow/cmd/flow/handlers"
)

// Status returns the command for displaying bids and instances.
func Status() *cobra.Command {
	var opts handlers.StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show spot bids and instances",
		Long: `Show the current spot bids and instances for the active project.

By default incomplete bid records are hidden and instances are shown for
all tasks. Pass --task to restrict instances to a single task name.

Examples:
  # Show all bids and instances
  flow status

  # Show instances belonging to one task
  flow status --task training-run

  # Include incomplete bid records
  flow status --show-all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Task, "task", "t", "", "Restrict instances to this task name")
	cmd.Flags().BoolVar(&opts.ShowAll, "show-all", false, "Include incomplete bid records")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}
