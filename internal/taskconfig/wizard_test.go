package taskconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStarterDefaults(t *testing.T) {
	doc, err := DefaultWizardResult().RenderStarter()
	require.NoError(t, err)

	cfg, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "my-task", cfg.Name)
	assert.Equal(t, "h100", cfg.ResourcesSpecification.GPUType)
	assert.Equal(t, 8, cfg.ResourcesSpecification.NumGPUs)
	assert.Equal(t, "standard", cfg.Priority())
	assert.Empty(t, cfg.Ports)
	assert.Nil(t, cfg.PersistentStorage)
}

func TestRenderStarterFullChoices(t *testing.T) {
	r := &WizardResult{
		Name:      "train-llm",
		GPUType:   "a100",
		NumGPUs:   4,
		Instances: 2,
		Priority:  "high",
		Port:      "8000-8010",
		MountDir:  "/mnt/data",
	}

	doc, err := r.RenderStarter()
	require.NoError(t, err)

	cfg, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "train-llm", cfg.Name)
	assert.Equal(t, 2, cfg.InstanceQuantity())
	assert.Equal(t, "high", cfg.Priority())

	mappings, err := cfg.PortMappings()
	require.NoError(t, err)
	assert.Len(t, mappings, 11)

	require.NotNil(t, cfg.PersistentStorage)
	assert.Equal(t, "/mnt/data", cfg.PersistentStorage.MountDir)
	require.NotNil(t, cfg.PersistentStorage.Create)
	assert.Equal(t, "train-llm-data", cfg.PersistentStorage.Create.VolumeName)
	assert.Equal(t, 100, cfg.PersistentStorage.Create.Size)
}

func TestValidateTaskName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: "train-llm-2"},
		{name: "empty", input: "", wantErr: "required"},
		{name: "uppercase", input: "Train", wantErr: "lowercase"},
		{name: "leading hyphen", input: "-train", wantErr: "hyphen"},
		{name: "trailing hyphen", input: "train-", wantErr: "hyphen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTaskName(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidatePortInput(t *testing.T) {
	assert.NoError(t, validatePortInput(""))
	assert.NoError(t, validatePortInput("8080"))
	assert.NoError(t, validatePortInput("8000-8010"))
	assert.Error(t, validatePortInput("web"))
	assert.Error(t, validatePortInput("70000"))
	assert.Error(t, validatePortInput("0"))
}

func TestValidateMountDir(t *testing.T) {
	assert.NoError(t, validateMountDir(""))
	assert.NoError(t, validateMountDir("/mnt/data"))
	assert.Error(t, validateMountDir("data"))
}

func TestPriorityOptionsLabelPrices(t *testing.T) {
	opts := priorityOptions()
	require.Len(t, opts, 4)
	assert.Equal(t, "low", opts[0].Value)
	assert.Contains(t, opts[0].Key, "$2.00")
	assert.Equal(t, "critical", opts[3].Value)
	assert.Contains(t, opts[3].Key, "$14.99")
}
