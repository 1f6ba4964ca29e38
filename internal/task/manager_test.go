package task

import (
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundrycloud/flow/internal/config"
	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/taskconfig"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Email:       "user@example.com",
		Password:    "pw",
		ProjectName: "research",
		SSHKeyName:  "laptop",
		APIURL:      "https://api.mlfoundry.com",
	}
}

// happyClient returns a fake that can satisfy a full submission.
func happyClient() *foundry.FakeClient {
	return &foundry.FakeClient{
		GetUserFunc: func(context.Context) (*foundry.User, error) {
			return &foundry.User{ID: "u-1", Email: "user@example.com"}, nil
		},
		GetProjectsFunc: func(_ context.Context, userID string) ([]foundry.Project, error) {
			return []foundry.Project{{ID: "p-1", Name: "research"}, {ID: "p-2", Name: "other"}}, nil
		},
		GetSSHKeysFunc: func(context.Context, string) ([]foundry.SSHKey, error) {
			return []foundry.SSHKey{{ID: "k-1", Name: "laptop"}}, nil
		},
		GetAuctionsFunc: func(context.Context, string) ([]foundry.Auction, error) {
			return []foundry.Auction{
				{ClusterID: "c-1", GPUType: "a100", InventoryQuantity: 4, InstanceTypeID: "it-a", RegionID: "r-1"},
				{ClusterID: "c-2", GPUType: "h100", InventoryQuantity: 8, InstanceTypeID: "it-h", RegionID: "r-2"},
			}, nil
		},
		PlaceBidFunc: func(_ context.Context, projectID string, payload foundry.BidPayload) (*foundry.Bid, error) {
			return &foundry.Bid{ID: "b-1", Name: payload.OrderName, Status: "open"}, nil
		},
	}
}

func testTaskConfig() *taskconfig.TaskConfig {
	cfg, err := taskconfig.Parse([]byte(`
name: training-run
task_management:
  priority: high
resources_specification:
  gpu_type: h100
  num_gpus: 8
ports:
  - 8080
startup_script: |
  echo "user setup"
`))
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestSubmitPlacesBid(t *testing.T) {
	client := happyClient()
	var placed foundry.BidPayload
	client.PlaceBidFunc = func(_ context.Context, projectID string, payload foundry.BidPayload) (*foundry.Bid, error) {
		assert.Equal(t, "p-1", projectID)
		placed = payload
		return &foundry.Bid{ID: "b-1", Name: payload.OrderName, Status: "open"}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	bid, err := m.Submit(context.Background(), testTaskConfig())
	require.NoError(t, err)
	assert.Equal(t, "b-1", bid.ID)

	assert.Equal(t, "c-2", placed.ClusterID)
	assert.Equal(t, "it-h", placed.InstanceTypeID)
	assert.Equal(t, "training-run", placed.OrderName)
	assert.Equal(t, 1229, placed.LimitPriceCents)
	assert.Equal(t, 1, placed.InstanceQuantity)
	assert.Equal(t, []string{"k-1"}, placed.SSHKeyIDs)
	assert.Equal(t, "u-1", placed.UserID)
	assert.Contains(t, placed.StartupScript, "#!/bin/bash")
}

func TestSubmitUtilityThresholdPriceWins(t *testing.T) {
	client := happyClient()
	var placed foundry.BidPayload
	client.PlaceBidFunc = func(_ context.Context, _ string, payload foundry.BidPayload) (*foundry.Bid, error) {
		placed = payload
		return &foundry.Bid{ID: "b-1"}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	cfg := testTaskConfig()
	threshold := 16.0
	cfg.TaskManagement.UtilityThresholdPrice = &threshold

	_, err = m.Submit(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1600, placed.LimitPriceCents)
}

func TestSubmitNoMatchingAuctions(t *testing.T) {
	client := happyClient()
	client.GetAuctionsFunc = func(context.Context, string) ([]foundry.Auction, error) {
		return []foundry.Auction{
			{ClusterID: "c-1", GPUType: "a100", InventoryQuantity: 4},
		}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), testTaskConfig())
	assert.ErrorIs(t, err, ErrNoMatchingAuctions)
}

func TestSubmitUnknownProject(t *testing.T) {
	client := happyClient()
	client.GetProjectsFunc = func(context.Context, string) ([]foundry.Project, error) {
		return []foundry.Project{{ID: "p-2", Name: "other"}}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), testTaskConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `project "research" not found`)
}

func TestSubmitUnknownSSHKey(t *testing.T) {
	client := happyClient()
	client.GetSSHKeysFunc = func(context.Context, string) ([]foundry.SSHKey, error) {
		return []foundry.SSHKey{{ID: "k-9", Name: "desktop"}}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), testTaskConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `ssh key "laptop" not found`)
}

func TestSubmitConfigNamesOverrideSettings(t *testing.T) {
	client := happyClient()
	client.GetProjectsFunc = func(context.Context, string) ([]foundry.Project, error) {
		return []foundry.Project{{ID: "p-cfg", Name: "from-config"}}, nil
	}
	client.GetSSHKeysFunc = func(_ context.Context, projectID string) ([]foundry.SSHKey, error) {
		assert.Equal(t, "p-cfg", projectID)
		return []foundry.SSHKey{{ID: "k-cfg", Name: "cfg-key"}}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	cfg := testTaskConfig()
	cfg.ProjectName = "from-config"
	cfg.SSHKeyName = "cfg-key"

	_, err = m.Submit(context.Background(), cfg)
	require.NoError(t, err)
}

func TestSubmitCreatesPersistentStorage(t *testing.T) {
	client := happyClient()
	var createdRegion string
	client.CreateDiskFunc = func(_ context.Context, _ string, disk foundry.DiskAttachment) (*foundry.DiskAttachment, error) {
		createdRegion = disk.RegionID
		created := disk
		created.DiskID = "d-1"
		return &created, nil
	}
	var placed foundry.BidPayload
	client.PlaceBidFunc = func(_ context.Context, _ string, payload foundry.BidPayload) (*foundry.Bid, error) {
		placed = payload
		return &foundry.Bid{ID: "b-1"}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	cfg := testTaskConfig()
	cfg.PersistentStorage = &taskconfig.PersistentStorage{
		MountDir: "/mnt/data",
		Create:   &taskconfig.PersistentStorageCreate{VolumeName: "vol", Size: 100},
	}

	_, err = m.Submit(context.Background(), cfg)
	require.NoError(t, err)

	// Disk lands in the selected auction's region.
	assert.Equal(t, "r-2", createdRegion)
	require.Len(t, placed.DiskAttachments, 1)
	assert.Equal(t, "d-1", placed.DiskAttachments[0].DiskID)
}

func TestSubmitChunkedSplitsOrder(t *testing.T) {
	client := happyClient()
	var orders []string
	var quantities []int
	client.PlaceBidFunc = func(_ context.Context, _ string, payload foundry.BidPayload) (*foundry.Bid, error) {
		orders = append(orders, payload.OrderName)
		quantities = append(quantities, payload.InstanceQuantity)
		return &foundry.Bid{ID: "b-" + payload.OrderName, Name: payload.OrderName}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	cfg := testTaskConfig()
	cfg.TaskManagement.NumInstances = 5

	placed, err := m.SubmitChunked(context.Background(), cfg, 2)
	require.NoError(t, err)
	assert.Len(t, placed, 3)
	assert.Equal(t, []string{"training-run-chunk1", "training-run-chunk2", "training-run-chunk3"}, orders)
	assert.Equal(t, []int{2, 2, 1}, quantities)
}

func TestBuildStartupScriptPackagesLargeScripts(t *testing.T) {
	m, err := NewManager(happyClient(), testSettings(), logr.Discard())
	require.NoError(t, err)

	cfg := testTaskConfig()
	cfg.StartupScript = strings.Repeat("echo filler\n", 2000)

	script, err := m.BuildStartupScript(cfg)
	require.NoError(t, err)
	assert.Contains(t, script, "base64 -d")
	assert.Contains(t, script, "sha256sum -c")
}

func TestCheckStatus(t *testing.T) {
	client := happyClient()
	client.GetBidsFunc = func(context.Context, string) ([]foundry.Bid, error) {
		return []foundry.Bid{
			{ID: "b-1", Name: "training-run", Status: "open"},
			{ID: "b-2"},
		}, nil
	}
	client.GetInstancesFunc = func(context.Context, string) (map[string][]foundry.Instance, error) {
		return map[string][]foundry.Instance{
			"spot": {
				{InstanceID: "i-1", Name: "training-run", InstanceStatus: "running"},
				{InstanceID: "i-2", Name: "other", InstanceStatus: "running"},
			},
			"reserved": {
				{InstanceID: "i-3", Name: "training-run", InstanceStatus: "stopped"},
			},
		}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	status, err := m.CheckStatus(context.Background(), "training-run", false)
	require.NoError(t, err)

	require.Len(t, status.Bids, 1)
	assert.Equal(t, "b-1", status.Bids[0].ID)

	require.Len(t, status.Instances, 2)
	assert.Equal(t, "i-3", status.Instances[0].InstanceID)
	assert.Equal(t, "reserved", status.Instances[0].Category)
	assert.Equal(t, "i-1", status.Instances[1].InstanceID)
	assert.Equal(t, "spot", status.Instances[1].Category)
}

func TestCheckStatusShowAllKeepsPartialBids(t *testing.T) {
	client := happyClient()
	client.GetBidsFunc = func(context.Context, string) ([]foundry.Bid, error) {
		return []foundry.Bid{{ID: "b-1", Name: "training-run", Status: "open"}, {ID: "b-2"}}, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	status, err := m.CheckStatus(context.Background(), "", true)
	require.NoError(t, err)
	assert.Len(t, status.Bids, 2)
}

func TestCancelBid(t *testing.T) {
	client := happyClient()
	client.GetBidsFunc = func(context.Context, string) ([]foundry.Bid, error) {
		return []foundry.Bid{{ID: "b-1", Name: "training-run", Status: "open"}}, nil
	}
	canceled := ""
	client.CancelBidFunc = func(_ context.Context, _ string, bidID string) error {
		canceled = bidID
		return nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	require.NoError(t, m.CancelBid(context.Background(), "training-run"))
	assert.Equal(t, "b-1", canceled)
}

func TestCancelBidNotFound(t *testing.T) {
	client := happyClient()
	client.GetBidsFunc = func(context.Context, string) ([]foundry.Bid, error) {
		return nil, nil
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	err = m.CancelBid(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBidNotFound)
}

func TestSubmitAuthenticationFailure(t *testing.T) {
	client := happyClient()
	client.GetUserFunc = func(context.Context) (*foundry.User, error) {
		return nil, &foundry.APIError{StatusCode: 401, Method: "GET", Path: "/users/"}
	}

	m, err := NewManager(client, testSettings(), logr.Discard())
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), testTaskConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}
