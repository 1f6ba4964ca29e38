package taskconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
name: training-run
task_management:
  num_instances: 1
  priority: standard
  utility_threshold_price: 4.24
resources_specification:
  fcp_instance: fh1.ultra
  num_instances: 1
  gpu_type: h100-80gb
  num_gpus: 8
  intranode_interconnect: SXM
  internode_interconnect: 3200_IB
ports:
  - 8080
  - 6006-6010
ephemeral_storage_config:
  type: local
  mounts:
    /dev/nvme1n1: /mnt/scratch
    /dev/nvme2n1: /mnt/cache
persistent_storage:
  mount_dir: /mnt/data
  create:
    volume_name: training-data
    region_id: us-central1-a
    disk_interface: Block
    size: 1000
container_image:
  image_name: nginx:latest
  run_options: "-p 8080:80"
startup_script: |
  #!/bin/bash
  echo "hello"
project_name: research
ssh_key_name: laptop
`

func TestParseValidDocument(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "training-run", cfg.Name)
	assert.Equal(t, "h100-80gb", cfg.ResourcesSpecification.GPUType)
	assert.Equal(t, 8, cfg.ResourcesSpecification.NumGPUs)
	assert.Equal(t, "standard", cfg.Priority())
	assert.Equal(t, 1, cfg.InstanceQuantity())
	require.NotNil(t, cfg.TaskManagement.UtilityThresholdPrice)
	assert.InDelta(t, 4.24, *cfg.TaskManagement.UtilityThresholdPrice, 0.001)
	assert.Equal(t, "research", cfg.ProjectName)
	assert.Contains(t, cfg.StartupScript, `echo "hello"`)
	require.NotNil(t, cfg.ContainerImage)
	assert.Equal(t, "nginx:latest", cfg.ContainerImage.ImageName)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "training-run", cfg.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read configuration file")
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := Parse([]byte("name training-run\ntask_management\n  priority: standard"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse configuration")
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing name",
			doc:     "resources_specification:\n  gpu_type: h100",
			wantErr: "name is a required field",
		},
		{
			name:    "missing resources specification",
			doc:     "name: t",
			wantErr: "resources_specification",
		},
		{
			name: "invalid priority",
			doc: `
name: t
task_management:
  priority: urgent
resources_specification:
  gpu_type: h100
`,
			wantErr: "invalid priority",
		},
		{
			name: "non-positive threshold price",
			doc: `
name: t
task_management:
  utility_threshold_price: 0
resources_specification:
  gpu_type: h100
`,
			wantErr: "utility_threshold_price",
		},
		{
			name: "port out of range",
			doc: `
name: t
resources_specification:
  gpu_type: h100
ports:
  - 70000
`,
			wantErr: "between 1 and 65535",
		},
		{
			name: "bad protocol",
			doc: `
name: t
resources_specification:
  gpu_type: h100
ports:
  - external: 80
    internal: 8080
    protocol: sctp
`,
			wantErr: "invalid protocol",
		},
		{
			name: "mismatched range lengths",
			doc: `
name: t
resources_specification:
  gpu_type: h100
ports:
  - external: 8000-8010
    internal: 9000-9005
`,
			wantErr: "do not match in length",
		},
		{
			name: "mapping form missing internal",
			doc: `
name: t
resources_specification:
  gpu_type: h100
ports:
  - external: 80
`,
			wantErr: "'internal' port cannot be empty",
		},
		{
			name: "persistent storage without attach or create",
			doc: `
name: t
resources_specification:
  gpu_type: h100
persistent_storage:
  mount_dir: /mnt/data
`,
			wantErr: "either attach or create",
		},
		{
			name: "persistent storage with both attach and create",
			doc: `
name: t
resources_specification:
  gpu_type: h100
persistent_storage:
  mount_dir: /mnt/data
  attach:
    volume_name: v
    region_id: r
  create:
    volume_name: v
    size: 10
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "persistent storage create without size",
			doc: `
name: t
resources_specification:
  gpu_type: h100
persistent_storage:
  mount_dir: /mnt/data
  create:
    volume_name: v
`,
			wantErr: "create.size",
		},
		{
			name: "container image without name",
			doc: `
name: t
resources_specification:
  gpu_type: h100
container_image:
  run_options: "-p 80:80"
`,
			wantErr: "container_image.image_name",
		},
		{
			name: "duplicate ephemeral mount dir",
			doc: `
name: t
resources_specification:
  gpu_type: h100
ephemeral_storage_config:
  mounts:
    /dev/nvme1n1: /mnt/scratch
    /dev/nvme2n1: /mnt/scratch
`,
			wantErr: "reuse directory",
		},
		{
			name: "invalid optimize",
			doc: `
name: t
resources_specification:
  gpu_type: h100
  advanced:
    optimize: speed
`,
			wantErr: "invalid optimize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPortSpecExpand(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{"8080", []int{8080}, false},
		{"6006-6008", []int{6006, 6007, 6008}, false},
		{"9000-9000", []int{9000}, false},
		{"0", nil, true},
		{"65536", nil, true},
		{"9000-8000", nil, true},
		{"abc", nil, true},
		{"80-abc", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := PortSpec{spec: tt.spec}.Expand()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortScalarFormsForwardToSelf(t *testing.T) {
	cfg, err := Parse([]byte(`
name: t
resources_specification:
  gpu_type: h100
ports:
  - 8080
  - "9090"
`))
	require.NoError(t, err)

	mappings, err := cfg.PortMappings()
	require.NoError(t, err)
	assert.Equal(t, []PortMapping{
		{External: 8080, Internal: 8080},
		{External: 9090, Internal: 9090},
	}, mappings)
	assert.Equal(t, "tcp", cfg.Ports[0].Protocol)
}

func TestPortRangeZip(t *testing.T) {
	cfg, err := Parse([]byte(`
name: t
resources_specification:
  gpu_type: h100
ports:
  - external: 8000-8002
    internal: 9000-9002
`))
	require.NoError(t, err)

	mappings, err := cfg.PortMappings()
	require.NoError(t, err)
	assert.Equal(t, []PortMapping{
		{External: 8000, Internal: 9000},
		{External: 8001, Internal: 9001},
		{External: 8002, Internal: 9002},
	}, mappings)
}

func TestEphemeralMountsPreserveDocumentOrder(t *testing.T) {
	cfg, err := Parse([]byte(`
name: t
resources_specification:
  gpu_type: h100
ephemeral_storage_config:
  mounts:
    /dev/nvme9n1: /mnt/z
    /dev/nvme1n1: /mnt/a
    /dev/nvme5n1: /mnt/m
`))
	require.NoError(t, err)

	assert.Equal(t, Mounts{
		{Device: "/dev/nvme9n1", Dir: "/mnt/z"},
		{Device: "/dev/nvme1n1", Dir: "/mnt/a"},
		{Device: "/dev/nvme5n1", Dir: "/mnt/m"},
	}, cfg.EphemeralStorage.Mounts)
}

func TestInstanceQuantityPrecedence(t *testing.T) {
	cfg := &TaskConfig{
		NumInstances:           2,
		TaskManagement:         &TaskManagement{NumInstances: 3},
		ResourcesSpecification: &ResourcesSpecification{NumInstances: 4},
	}
	assert.Equal(t, 3, cfg.InstanceQuantity())

	cfg.TaskManagement = nil
	assert.Equal(t, 2, cfg.InstanceQuantity())

	cfg.NumInstances = 0
	assert.Equal(t, 4, cfg.InstanceQuantity())

	cfg.ResourcesSpecification.NumInstances = 0
	assert.Equal(t, 1, cfg.InstanceQuantity())
}

func TestPriorityDefaults(t *testing.T) {
	cfg := &TaskConfig{}
	assert.Equal(t, "standard", cfg.Priority())

	cfg.TaskManagement = &TaskManagement{Priority: "critical"}
	assert.Equal(t, "critical", cfg.Priority())
}
