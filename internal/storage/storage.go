// Package storage provisions and attaches persistent disks for tasks.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/taskconfig"
)

const defaultDiskInterface = "Block"

// Manager resolves a task's persistent storage section into a disk
// attachment for the bid payload.
type Manager struct {
	client foundry.Client
	log    logr.Logger
}

// NewManager returns a Manager backed by the given API client.
func NewManager(client foundry.Client, log logr.Logger) *Manager {
	return &Manager{client: client, log: log}
}

// Prepare creates or looks up the disk described by ps. It returns nil when
// ps is nil or names neither a create nor an attach operation. A created
// volume gets a unique suffix so repeated submissions do not collide.
func (m *Manager) Prepare(ctx context.Context, projectID string, ps *taskconfig.PersistentStorage, regionID string) (*foundry.DiskAttachment, error) {
	switch {
	case ps == nil:
		return nil, nil
	case ps.Create != nil:
		return m.create(ctx, projectID, ps.Create, regionID)
	case ps.Attach != nil:
		return m.attach(ctx, projectID, ps.Attach, regionID)
	default:
		return nil, nil
	}
}

func (m *Manager) create(ctx context.Context, projectID string, cfg *taskconfig.PersistentStorageCreate, regionID string) (*foundry.DiskAttachment, error) {
	if cfg.VolumeName == "" {
		return nil, fmt.Errorf("volume name must be specified")
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("disk size must be specified")
	}

	if regionID == "" {
		regionID = cfg.RegionID
	}
	if regionID == "" {
		var err error
		regionID, err = m.DefaultRegionID(ctx)
		if err != nil {
			return nil, err
		}
	}

	diskInterface := cfg.DiskInterface
	if diskInterface == "" {
		diskInterface = defaultDiskInterface
	}

	volumeName := fmt.Sprintf("%s-%s", cfg.VolumeName, strings.ReplaceAll(uuid.NewString(), "-", ""))
	disk := foundry.DiskAttachment{
		DiskID:        uuid.NewString(),
		Name:          volumeName,
		VolumeName:    volumeName,
		DiskInterface: diskInterface,
		RegionID:      regionID,
		Size:          cfg.Size,
		SizeUnit:      "gb",
	}

	m.log.Info("creating persistent storage", "volume", volumeName, "size_gb", cfg.Size, "region_id", regionID)
	created, err := m.client.CreateDisk(ctx, projectID, disk)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk: %w", err)
	}
	disk.DiskID = created.DiskID
	m.log.Info("persistent storage created", "disk_id", disk.DiskID)
	return &disk, nil
}

func (m *Manager) attach(ctx context.Context, projectID string, cfg *taskconfig.PersistentStorageAttach, regionID string) (*foundry.DiskAttachment, error) {
	if regionID == "" {
		regionID = cfg.RegionID
	}
	if regionID == "" {
		var err error
		regionID, err = m.DefaultRegionID(ctx)
		if err != nil {
			return nil, err
		}
	}

	disk, err := m.client.GetDisk(ctx, projectID, cfg.VolumeName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up volume %s: %w", cfg.VolumeName, err)
	}

	return &foundry.DiskAttachment{
		DiskID:        disk.DiskID,
		Name:          disk.Name,
		VolumeName:    disk.VolumeName,
		DiskInterface: disk.DiskInterface,
		RegionID:      regionID,
		Size:          disk.Size,
		SizeUnit:      disk.SizeUnit,
	}, nil
}

// DefaultRegionID returns the first region the API reports.
func (m *Manager) DefaultRegionID(ctx context.Context) (string, error) {
	regions, err := m.client.GetRegions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list regions: %w", err)
	}
	if len(regions) == 0 {
		return "", fmt.Errorf("no regions available")
	}
	m.log.V(1).Info("resolved default region", "region_id", regions[0].RegionID)
	return regions[0].RegionID, nil
}
