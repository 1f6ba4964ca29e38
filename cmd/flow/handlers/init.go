package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/foundrycloud/flow/internal/config"
	"github.com/foundrycloud/flow/internal/taskconfig"
	"github.com/foundrycloud/flow/internal/ui"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// isInteractive reports whether stdout is a terminal.
	isInteractive = ui.IsInteractive

	// runWizard runs the task definition wizard.
	runWizard = taskconfig.RunWizard

	// writeFile writes data to a file.
	writeFile = os.WriteFile
)

// InitOptions carries the init command's flags.
type InitOptions struct {
	Output string
	Force  bool
}

// Init writes a starter task definition. When attached to a terminal the
// values come from an interactive wizard, otherwise from documented defaults.
func Init(ctx context.Context, opts InitOptions) error {
	if fileExists(opts.Output) && !opts.Force {
		return fmt.Errorf("%s already exists, pass --force to overwrite", opts.Output)
	}

	result := taskconfig.DefaultWizardResult()
	if isInteractive() {
		printWelcome()
		r, err := runWizard(ctx)
		if err != nil {
			return err
		}
		result = r
	}

	doc, err := result.RenderStarter()
	if err != nil {
		return err
	}
	if err := writeFile(opts.Output, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}

	printInitSuccess(opts.Output, result)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "flow - GPU tasks on the Foundry spot market")
	fmt.Fprintln(stdout, "===========================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a task definition with sensible defaults.")
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the summary and next steps.
func printInitSuccess(outputPath string, r *taskconfig.WizardResult) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Task definition saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File:     %s\n", outputPath)
	fmt.Fprintf(stdout, "  Task:     %s\n", r.Name)
	fmt.Fprintf(stdout, "  GPUs:     %d x %s\n", r.NumGPUs, r.GPUType)
	fmt.Fprintf(stdout, "  Priority: %s\n", r.Priority)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintln(stdout, "  1. Set your credentials:")
	fmt.Fprintf(stdout, "     export %s=<email> %s=<password>\n", config.EnvEmail, config.EnvPassword)
	fmt.Fprintf(stdout, "     export %s=<project> %s=<ssh-key>\n", config.EnvProjectName, config.EnvSSHKeyName)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  2. Review %s if needed\n", outputPath)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  3. Submit your task:")
	fmt.Fprintf(stdout, "     flow submit -c %s\n", outputPath)
	fmt.Fprintln(stdout)
}
