package handlers

import (
	"context"
	"fmt"
)

// CancelOptions carries the cancel command's flags.
type CancelOptions struct {
	BidName string
	Verbose bool
}

// Cancel deactivates the bid with the given order name.
func Cancel(ctx context.Context, opts CancelOptions) error {
	mgr, err := connect(ctx, opts.Verbose)
	if err != nil {
		return err
	}

	err = withSpinner(fmt.Sprintf("Canceling bid %q", opts.BidName), func() error {
		return mgr.CancelBid(ctx, opts.BidName)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Bid %q canceled.\n", opts.BidName)
	return nil
}
