// Package taskconfig parses and validates the YAML task definition the CLI
// submits as a spot bid.
package taskconfig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foundrycloud/flow/internal/config"
)

// TaskManagement tunes scheduling of the task.
type TaskManagement struct {
	NumInstances          int      `yaml:"num_instances"`
	Priority              string   `yaml:"priority"`
	UtilityThresholdPrice *float64 `yaml:"utility_threshold_price"`
}

// AdvancedSpec holds optional resource optimization hints.
type AdvancedSpec struct {
	Optimize                 string `yaml:"optimize"`
	NearestEstimatedDuration int    `yaml:"nearest_estimated_duration"`
}

// ResourcesSpecification describes the hardware the task needs.
type ResourcesSpecification struct {
	FCPInstance           string        `yaml:"fcp_instance"`
	NumInstances          int           `yaml:"num_instances"`
	GPUType               string        `yaml:"gpu_type"`
	NumGPUs               int           `yaml:"num_gpus"`
	IntranodeInterconnect string        `yaml:"intranode_interconnect"`
	InternodeInterconnect string        `yaml:"internode_interconnect"`
	Advanced              *AdvancedSpec `yaml:"advanced"`
}

// MountEntry maps a block device to the directory it is mounted at.
// Entries keep the order they appear in the document.
type MountEntry struct {
	Device string
	Dir    string
}

// Mounts is an ordered device to directory mapping.
type Mounts []MountEntry

// UnmarshalYAML decodes a YAML mapping while preserving key order.
func (m *Mounts) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mounts must be a mapping of device to directory")
	}
	entries := make(Mounts, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return fmt.Errorf("mounts must map device strings to directory strings")
		}
		entries = append(entries, MountEntry{Device: key.Value, Dir: value.Value})
	}
	*m = entries
	return nil
}

// EphemeralStorageConfig formats and mounts instance-local disks.
type EphemeralStorageConfig struct {
	Type   string `yaml:"type"`
	Mounts Mounts `yaml:"mounts"`
}

// PersistentStorageCreate describes a new volume to provision.
type PersistentStorageCreate struct {
	VolumeName    string `yaml:"volume_name"`
	Size          int    `yaml:"size"`
	RegionID      string `yaml:"region_id"`
	DiskInterface string `yaml:"disk_interface"`
}

// PersistentStorageAttach references an existing volume.
type PersistentStorageAttach struct {
	VolumeName string `yaml:"volume_name"`
	RegionID   string `yaml:"region_id"`
}

// PersistentStorage configures durable volumes for the task. Exactly one
// of Attach or Create must be set.
type PersistentStorage struct {
	MountDir string                   `yaml:"mount_dir"`
	Attach   *PersistentStorageAttach `yaml:"attach"`
	Create   *PersistentStorageCreate `yaml:"create"`
}

// Networking holds data center network preferences.
type Networking struct {
	DCNetworkClass string `yaml:"dc_network_class"`
}

// Resources holds per-instance CPU and memory requests.
type Resources struct {
	VCPU int `yaml:"vCPU"`
	RAM  int `yaml:"RAM"`
}

// ContainerImageConfig names a Docker image to run on boot. When
// BuildContext is set the image is built on the instance instead of pulled.
type ContainerImageConfig struct {
	ImageName    string `yaml:"image_name"`
	BuildContext string `yaml:"build_context"`
	RunOptions   string `yaml:"run_options"`
}

// TaskConfig is the root of the task definition document.
type TaskConfig struct {
	Name                   string                  `yaml:"name"`
	NumInstances           int                     `yaml:"num_instances"`
	TaskManagement         *TaskManagement         `yaml:"task_management"`
	ResourcesSpecification *ResourcesSpecification `yaml:"resources_specification"`
	Ports                  []Port                  `yaml:"ports"`
	EphemeralStorage       *EphemeralStorageConfig `yaml:"ephemeral_storage_config"`
	PersistentStorage      *PersistentStorage      `yaml:"persistent_storage"`
	Networking             *Networking             `yaml:"networking"`
	Resources              *Resources              `yaml:"resources"`
	StartupScript          string                  `yaml:"startup_script"`
	ContainerImage         *ContainerImageConfig   `yaml:"container_image"`
	ProjectName            string                  `yaml:"project_name"`
	SSHKeyName             string                  `yaml:"ssh_key_name"`
}

// Validate checks the document for structural errors before any API call
// is made.
func (c *TaskConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is a required field")
	}
	if c.ResourcesSpecification == nil {
		return fmt.Errorf("resources_specification is not defined in the configuration")
	}
	if c.ResourcesSpecification.GPUType == "" && c.ResourcesSpecification.FCPInstance == "" {
		return fmt.Errorf("resources_specification must set gpu_type or fcp_instance")
	}

	if tm := c.TaskManagement; tm != nil {
		if tm.Priority != "" && !config.ValidPriority(tm.Priority) {
			return fmt.Errorf("invalid priority %q, valid options are: %s",
				tm.Priority, strings.Join(config.Priorities(), ", "))
		}
		if tm.UtilityThresholdPrice != nil && *tm.UtilityThresholdPrice <= 0 {
			return fmt.Errorf("utility_threshold_price must be greater than zero")
		}
		if tm.NumInstances < 0 {
			return fmt.Errorf("num_instances must be non-negative")
		}
	}

	for i, port := range c.Ports {
		if err := port.validate(); err != nil {
			return fmt.Errorf("ports[%d]: %w", i, err)
		}
	}

	if es := c.EphemeralStorage; es != nil {
		seen := make(map[string]struct{}, len(es.Mounts))
		for _, mount := range es.Mounts {
			if mount.Device == "" || mount.Dir == "" {
				return fmt.Errorf("ephemeral_storage_config mounts must map device to directory")
			}
			if _, dup := seen[mount.Dir]; dup {
				return fmt.Errorf("ephemeral_storage_config mounts reuse directory %s", mount.Dir)
			}
			seen[mount.Dir] = struct{}{}
		}
	}

	if ps := c.PersistentStorage; ps != nil {
		if err := ps.validate(); err != nil {
			return fmt.Errorf("persistent_storage: %w", err)
		}
	}

	if ci := c.ContainerImage; ci != nil {
		if strings.TrimSpace(ci.ImageName) == "" {
			return fmt.Errorf("container_image.image_name is required")
		}
	}

	if adv := c.ResourcesSpecification.Advanced; adv != nil {
		if adv.Optimize != "" && adv.Optimize != "budget" && adv.Optimize != "job_completion_time" {
			return fmt.Errorf("invalid optimize %q, valid options are: budget, job_completion_time", adv.Optimize)
		}
		if adv.NearestEstimatedDuration < 0 {
			return fmt.Errorf("nearest_estimated_duration must be non-negative")
		}
	}

	return nil
}

func (p *PersistentStorage) validate() error {
	if p.Attach == nil && p.Create == nil {
		return fmt.Errorf("either attach or create must be set")
	}
	if p.Attach != nil && p.Create != nil {
		return fmt.Errorf("attach and create are mutually exclusive")
	}
	if strings.TrimSpace(p.MountDir) == "" {
		return fmt.Errorf("mount_dir is required")
	}
	if p.Attach != nil {
		if p.Attach.VolumeName == "" {
			return fmt.Errorf("attach.volume_name is required")
		}
		if p.Attach.RegionID == "" {
			return fmt.Errorf("attach.region_id is required")
		}
	}
	if p.Create != nil {
		if p.Create.Size <= 0 {
			return fmt.Errorf("create.size must be greater than zero")
		}
	}
	return nil
}

// PortMappings expands every ports entry and concatenates the results in
// document order.
func (c *TaskConfig) PortMappings() ([]PortMapping, error) {
	var all []PortMapping
	for i, port := range c.Ports {
		mappings, err := port.Mappings()
		if err != nil {
			return nil, fmt.Errorf("ports[%d]: %w", i, err)
		}
		all = append(all, mappings...)
	}
	return all, nil
}

// Priority returns the effective priority level for the task.
func (c *TaskConfig) Priority() string {
	if c.TaskManagement != nil && c.TaskManagement.Priority != "" {
		return c.TaskManagement.Priority
	}
	return config.DefaultPriority
}

// InstanceQuantity returns the requested instance count, defaulting to one.
// task_management takes precedence over the top level field.
func (c *TaskConfig) InstanceQuantity() int {
	if c.TaskManagement != nil && c.TaskManagement.NumInstances > 0 {
		return c.TaskManagement.NumInstances
	}
	if c.NumInstances > 0 {
		return c.NumInstances
	}
	if c.ResourcesSpecification != nil && c.ResourcesSpecification.NumInstances > 0 {
		return c.ResourcesSpecification.NumInstances
	}
	return 1
}
