package taskconfig

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/foundrycloud/flow/internal/config"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	Name      string
	GPUType   string
	NumGPUs   int
	Instances int
	Priority  string
	Port      string
	MountDir  string
}

// DefaultWizardResult returns the choices the wizard starts from, also used
// verbatim when no terminal is attached.
func DefaultWizardResult() *WizardResult {
	return &WizardResult{
		Name:     "my-task",
		GPUType:  "h100",
		NumGPUs:  8,
		Priority: config.DefaultPriority,
	}
}

// RunWizard collects a task definition interactively.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := DefaultWizardResult()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task name").
				Description("Used as the bid's order name (lowercase, digits, hyphens)").
				Placeholder("my-task").
				Value(&result.Name).
				Validate(validateTaskName),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("GPU type").
				Description("Matched as a whole word against auction GPU types").
				Options(
					huh.NewOption("H100", "h100"),
					huh.NewOption("A100", "a100"),
					huh.NewOption("A6000", "a6000"),
					huh.NewOption("A40", "a40"),
				).
				Value(&result.GPUType),

			huh.NewSelect[int]().
				Title("GPUs per instance").
				Options(
					huh.NewOption("1 GPU", 1),
					huh.NewOption("2 GPUs", 2),
					huh.NewOption("4 GPUs", 4),
					huh.NewOption("8 GPUs", 8),
				).
				Value(&result.NumGPUs),

			huh.NewSelect[int]().
				Title("Number of instances").
				Options(
					huh.NewOption("1 instance", 1),
					huh.NewOption("2 instances", 2),
					huh.NewOption("4 instances", 4),
					huh.NewOption("8 instances", 8),
				).
				Value(&result.Instances),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Priority").
				Description("Sets the bid's limit price").
				OptionsFunc(priorityOptions, nil).
				Value(&result.Priority),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Forwarded port (optional)").
				Description("A port or range like 8080 or 8000-8010. Leave empty to skip.").
				Placeholder("8080").
				Value(&result.Port).
				Validate(validatePortInput),

			huh.NewInput().
				Title("Persistent volume mount dir (optional)").
				Description("Where an attached volume is mounted. Leave empty to skip.").
				Placeholder("/mnt/data").
				Value(&result.MountDir).
				Validate(validateMountDir),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}
	return result, nil
}

// priorityOptions labels each priority level with its limit price.
func priorityOptions() []huh.Option[string] {
	names := config.Priorities()
	opts := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		cents, err := config.PriorityPriceCents(name)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("%s ($%.2f/hr limit)", name, float64(cents)/100)
		opts = append(opts, huh.NewOption(label, name))
	}
	return opts
}

// RenderStarter renders a commented task definition from the wizard choices.
// The rendered document is parsed back before being returned so init can
// never write a file that submit would reject.
func (r *WizardResult) RenderStarter() ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task definition for the flow CLI.\n")
	fmt.Fprintf(&b, "# Submit with: flow submit -c <this file>\n\n")
	fmt.Fprintf(&b, "name: %s\n\n", r.Name)

	fmt.Fprintf(&b, "task_management:\n")
	fmt.Fprintf(&b, "  priority: %s\n", r.Priority)
	if r.Instances > 1 {
		fmt.Fprintf(&b, "  num_instances: %d\n", r.Instances)
	}
	fmt.Fprintf(&b, "  # Set a dollar price to override the priority's limit price:\n")
	fmt.Fprintf(&b, "  # utility_threshold_price: 10.50\n\n")

	fmt.Fprintf(&b, "resources_specification:\n")
	fmt.Fprintf(&b, "  gpu_type: %s\n", r.GPUType)
	fmt.Fprintf(&b, "  num_gpus: %d\n\n", r.NumGPUs)

	if r.Port != "" {
		fmt.Fprintf(&b, "ports:\n")
		fmt.Fprintf(&b, "  - %s\n\n", r.Port)
	}

	if r.MountDir != "" {
		fmt.Fprintf(&b, "persistent_storage:\n")
		fmt.Fprintf(&b, "  mount_dir: %s\n", r.MountDir)
		fmt.Fprintf(&b, "  create:\n")
		fmt.Fprintf(&b, "    volume_name: %s-data\n", r.Name)
		fmt.Fprintf(&b, "    size: 100\n\n")
	}

	fmt.Fprintf(&b, "startup_script: |\n")
	fmt.Fprintf(&b, "  echo \"instance ready\"\n")

	doc := []byte(b.String())
	if _, err := Parse(doc); err != nil {
		return nil, fmt.Errorf("generated definition is invalid: %w", err)
	}
	return doc, nil
}

func validateTaskName(s string) error {
	if s == "" {
		return fmt.Errorf("task name is required")
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("task name can only contain lowercase letters, digits, and hyphens")
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("task name cannot start or end with a hyphen")
	}
	return nil
}

func validatePortInput(s string) error {
	if s == "" {
		return nil
	}
	for _, part := range strings.SplitN(s, "-", 2) {
		port, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("ports must be numbers between 1 and 65535")
		}
	}
	return nil
}

func validateMountDir(s string) error {
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "/") {
		return fmt.Errorf("mount dir must be an absolute path")
	}
	return nil
}
