// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/foundrycloud/flow/internal/config"
	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/task"
	"github.com/foundrycloud/flow/internal/taskconfig"
	"github.com/foundrycloud/flow/internal/ui"
)

// taskRunner is the surface handlers need from a task manager.
type taskRunner interface {
	Submit(ctx context.Context, cfg *taskconfig.TaskConfig) (*foundry.Bid, error)
	SubmitChunked(ctx context.Context, cfg *taskconfig.TaskConfig, chunkSize int) ([]foundry.Bid, error)
	CheckStatus(ctx context.Context, taskName string, showAll bool) (*task.Status, error)
	CancelBid(ctx context.Context, name string) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadSettings loads CLI settings from file and environment.
	loadSettings = config.Load

	// loadTaskConfig loads and validates a task definition file.
	loadTaskConfig = taskconfig.Load

	// login exchanges credentials for an access token.
	login = foundry.Login

	// newClient creates an authenticated API client.
	newClient = func(token string, settings *config.Settings, log logr.Logger) foundry.Client {
		return foundry.NewRealClient(token,
			foundry.WithBaseURL(settings.APIURL),
			foundry.WithLogger(log))
	}

	// newTaskManager wires a task manager from a client and settings.
	newTaskManager = func(client foundry.Client, settings *config.Settings, log logr.Logger) (taskRunner, error) {
		return task.NewManager(client, settings, log)
	}

	// withSpinner runs fn behind a progress spinner on stderr.
	withSpinner = func(message string, fn func() error) error {
		return ui.WithSpinner(os.Stderr, message, fn)
	}

	// stdout is where handlers print results (for testing injection).
	stdout io.Writer = os.Stdout
)

// newLogger builds a stderr logger. Verbose raises the verbosity so debug
// events like auction rejection reasons become visible.
func newLogger(verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

// connect loads settings, authenticates, and wires a task manager.
func connect(ctx context.Context, verbose bool) (taskRunner, error) {
	log := newLogger(verbose)

	settings, err := loadSettings(config.DefaultPath())
	if err != nil {
		return nil, err
	}

	token, err := login(ctx, settings.Email, settings.Password,
		foundry.WithBaseURL(settings.APIURL),
		foundry.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	client := newClient(token, settings, log)
	return newTaskManager(client, settings, log)
}
