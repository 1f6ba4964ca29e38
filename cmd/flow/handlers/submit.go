package handlers

import (
	"context"
	"fmt"

	"github.com/foundrycloud/flow/internal/platform/foundry"
)

// SubmitOptions carries the submit command's flags.
type SubmitOptions struct {
	ConfigPath string
	Project    string
	SSHKey     string
	ChunkSize  int
	Verbose    bool
}

// Submit loads a task definition and places its spot bid.
//
// The workflow parses and validates the task definition, authenticates with
// the credentials from settings, composes the instance startup script, finds
// an auction matching the resource specification, provisions persistent
// storage if requested, and submits the bid. With a chunk size the order is
// split into multiple bids so the auction can fill it partially.
func Submit(ctx context.Context, opts SubmitOptions) error {
	cfg, err := loadTaskConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Project != "" {
		cfg.ProjectName = opts.Project
	}
	if opts.SSHKey != "" {
		cfg.SSHKeyName = opts.SSHKey
	}

	mgr, err := connect(ctx, opts.Verbose)
	if err != nil {
		return err
	}

	var placed []foundry.Bid
	err = withSpinner(fmt.Sprintf("Submitting task %q", cfg.Name), func() error {
		if opts.ChunkSize > 0 {
			bids, err := mgr.SubmitChunked(ctx, cfg, opts.ChunkSize)
			placed = bids
			return err
		}
		b, err := mgr.Submit(ctx, cfg)
		if b != nil {
			placed = []foundry.Bid{*b}
		}
		return err
	})
	if err != nil {
		return err
	}

	for _, b := range placed {
		fmt.Fprintf(stdout, "Bid %s placed for order %q (status: %s)\n", b.ID, b.Name, b.Status)
	}
	fmt.Fprintf(stdout, "\nCheck progress with: flow status --task %s\n", cfg.Name)
	return nil
}
