// Package main is the entry point for the flow CLI.
//
// flow submits and manages GPU workloads on the Foundry Cloud Platform. It
// reads a YAML task definition, builds the instance startup script, finds a
// spot auction matching the requested resources, and places a bid.
//
// Commands: submit, status, cancel, init, version, completion.
//
// For detailed usage information, run:
//
//	flow --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/foundrycloud/flow/cmd/flow/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
