package commands

import (
	"github.com/spf13/cobra"

	"github.com/foundrycloud/flow/cmd/flow/handlers"
)

// Cancel returns the command for cancelling a spot bid by name.
func Cancel() *cobra.Command {
	var opts handlers.CancelOptions

	cmd := &cobra.Command{
		Use:   "cancel <bid-name>",
		Short: "Cancel a spot bid",
		Long: `Cancel a spot bid by its order name.

Chunked submissions create one bid per chunk named <task>-chunk1,
<task>-chunk2 and so on; each chunk is cancelled individually.

Examples:
  # Cancel a bid
  flow cancel training-run

  # Cancel one chunk of a chunked submission
  flow cancel training-run-chunk2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.BidName = args[0]
			return handlers.Cancel(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}
