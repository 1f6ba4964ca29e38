package handlers

import (
	"context"
	"fmt"

	"github.com/foundrycloud/flow/internal/task"
	"github.com/foundrycloud/flow/internal/ui"
)

// StatusOptions carries the status command's flags.
type StatusOptions struct {
	Task    string
	ShowAll bool
	Verbose bool
}

// Status fetches the project's bids and instances and renders them as tables.
func Status(ctx context.Context, opts StatusOptions) error {
	mgr, err := connect(ctx, opts.Verbose)
	if err != nil {
		return err
	}

	var status *task.Status
	err = withSpinner("Fetching bids and instances", func() error {
		var err error
		status, err = mgr.CheckStatus(ctx, opts.Task, opts.ShowAll)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, ui.RenderStatus(status.Bids, status.Instances))
	return nil
}
