// Package task orchestrates a task submission end to end: config parsing,
// startup script composition, auction matching, storage provisioning, and
// bid placement.
package task

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/foundrycloud/flow/internal/auction"
	"github.com/foundrycloud/flow/internal/bid"
	"github.com/foundrycloud/flow/internal/config"
	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/startup"
	"github.com/foundrycloud/flow/internal/storage"
	"github.com/foundrycloud/flow/internal/taskconfig"
)

// ErrNoMatchingAuctions is returned when no auction satisfies the task's
// resource specification.
var ErrNoMatchingAuctions = errors.New("no matching auctions available to submit bid")

// ErrBidNotFound is returned when a named bid does not exist in the project.
var ErrBidNotFound = errors.New("bid not found")

// Manager runs task operations against one project.
type Manager struct {
	client   foundry.Client
	settings *config.Settings
	composer *startup.Composer
	codec    *startup.Codec
	finder   *auction.Finder
	bids     *bid.Manager
	storage  *storage.Manager
	log      logr.Logger
}

// NewManager wires a Manager from an authenticated API client and the CLI
// settings.
func NewManager(client foundry.Client, settings *config.Settings, log logr.Logger) (*Manager, error) {
	catalog, err := startup.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load startup segment catalog: %w", err)
	}
	return &Manager{
		client:   client,
		settings: settings,
		composer: startup.NewComposer(catalog, log),
		codec:    startup.NewCodec(catalog, log),
		finder:   auction.NewFinder(client, log),
		bids:     bid.NewManager(client, log),
		storage:  storage.NewManager(client, log),
		log:      log,
	}, nil
}

// identity is the resolved user, project, and SSH key for one operation.
type identity struct {
	UserID    string
	ProjectID string
	SSHKeyID  string
}

// Submit provisions everything a task needs and places its spot bid.
func (m *Manager) Submit(ctx context.Context, cfg *taskconfig.TaskConfig) (*foundry.Bid, error) {
	params, err := m.prepareBid(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return m.bids.Submit(ctx, params)
}

// SubmitChunked provisions the task and places its bid as a series of chunk
// bids of at most chunkSize instances each, so the auction can fill the
// order partially.
func (m *Manager) SubmitChunked(ctx context.Context, cfg *taskconfig.TaskConfig, chunkSize int) ([]foundry.Bid, error) {
	params, err := m.prepareBid(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return m.bids.SubmitChunked(ctx, params, chunkSize)
}

// prepareBid resolves identity, composes the startup script, selects an
// auction, and provisions storage, returning bid parameters ready to submit.
func (m *Manager) prepareBid(ctx context.Context, cfg *taskconfig.TaskConfig) (bid.Params, error) {
	limitPriceCents, err := bid.LimitPriceCents(cfg.Priority(), thresholdPrice(cfg))
	if err != nil {
		return bid.Params{}, err
	}

	script, err := m.BuildStartupScript(cfg)
	if err != nil {
		return bid.Params{}, err
	}

	id, err := m.resolveIdentity(ctx, cfg)
	if err != nil {
		return bid.Params{}, err
	}

	auctions, err := m.finder.Fetch(ctx, id.ProjectID)
	if err != nil {
		return bid.Params{}, err
	}
	matching := m.finder.FindMatching(auctions, cfg.ResourcesSpecification)
	if len(matching) == 0 {
		return bid.Params{}, ErrNoMatchingAuctions
	}
	selected := matching[0]
	m.log.Info("selected auction", "cluster_id", selected.ClusterID,
		"gpu_type", selected.GPUType, "last_price", selected.LastPrice)

	var disks []foundry.DiskAttachment
	if cfg.PersistentStorage != nil {
		disk, err := m.storage.Prepare(ctx, id.ProjectID, cfg.PersistentStorage, selected.RegionID)
		if err != nil {
			return bid.Params{}, err
		}
		if disk != nil {
			disks = append(disks, *disk)
		}
	}

	return bid.Params{
		ClusterID:        selected.ClusterID,
		InstanceQuantity: cfg.InstanceQuantity(),
		InstanceTypeID:   selected.InstanceTypeID,
		LimitPriceCents:  limitPriceCents,
		OrderName:        cfg.Name,
		ProjectID:        id.ProjectID,
		SSHKeyIDs:        []string{id.SSHKeyID},
		UserID:           id.UserID,
		StartupScript:    script,
		DiskAttachments:  disks,
	}, nil
}

// BuildStartupScript composes the task's startup script and packages it for
// the bid payload.
func (m *Manager) BuildStartupScript(cfg *taskconfig.TaskConfig) (string, error) {
	req, err := composeRequest(cfg)
	if err != nil {
		return "", err
	}
	script, err := m.composer.Compose(req)
	if err != nil {
		return "", fmt.Errorf("failed to compose startup script: %w", err)
	}
	packaged, err := m.codec.Package(script, startup.DefaultSizeThreshold)
	if err != nil {
		return "", fmt.Errorf("failed to package startup script: %w", err)
	}
	return packaged, nil
}

// Status describes the project's bids and instances, optionally filtered to
// one task.
type Status struct {
	Bids      []foundry.Bid
	Instances []foundry.Instance
}

// CheckStatus lists bids and running instances. When taskName is set,
// instances are filtered to that name. Unless showAll is set, bids without
// a name or status are dropped.
func (m *Manager) CheckStatus(ctx context.Context, taskName string, showAll bool) (*Status, error) {
	id, err := m.resolveIdentity(ctx, nil)
	if err != nil {
		return nil, err
	}

	bids, err := m.bids.List(ctx, id.ProjectID)
	if err != nil {
		return nil, err
	}
	if !showAll {
		valid := bids[:0:0]
		for _, b := range bids {
			if b.Name != "" && b.Status != "" {
				valid = append(valid, b)
			}
		}
		bids = valid
	}

	instances, err := m.listInstances(ctx, id.ProjectID, taskName)
	if err != nil {
		return nil, err
	}

	return &Status{Bids: bids, Instances: instances}, nil
}

// CancelBid deactivates the bid with the given order name.
func (m *Manager) CancelBid(ctx context.Context, name string) error {
	id, err := m.resolveIdentity(ctx, nil)
	if err != nil {
		return err
	}
	found, err := m.bids.FindByName(ctx, id.ProjectID, name)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("bid with name %q: %w", name, ErrBidNotFound)
	}
	return m.bids.Cancel(ctx, id.ProjectID, found.ID)
}

// listInstances flattens the categorized instance listing, stamping each
// instance with its category.
func (m *Manager) listInstances(ctx context.Context, projectID, name string) ([]foundry.Instance, error) {
	grouped, err := m.client.GetInstances(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	categories := make([]string, 0, len(grouped))
	for category := range grouped {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var flattened []foundry.Instance
	for _, category := range categories {
		for _, inst := range grouped[category] {
			inst.Category = category
			if name != "" && inst.Name != name {
				continue
			}
			flattened = append(flattened, inst)
		}
	}
	return flattened, nil
}

// resolveIdentity authenticates the user and resolves the project and SSH
// key names to ids. The task config's names take precedence over settings.
func (m *Manager) resolveIdentity(ctx context.Context, cfg *taskconfig.TaskConfig) (identity, error) {
	user, err := m.client.GetUser(ctx)
	if err != nil {
		return identity{}, fmt.Errorf("authentication failed: %w", err)
	}
	if user.ID == "" {
		return identity{}, fmt.Errorf("user id not found in user info")
	}

	projectName := m.settings.ProjectName
	sshKeyName := m.settings.SSHKeyName
	if cfg != nil {
		if cfg.ProjectName != "" {
			projectName = cfg.ProjectName
		}
		if cfg.SSHKeyName != "" {
			sshKeyName = cfg.SSHKeyName
		}
	}

	projects, err := m.client.GetProjects(ctx, user.ID)
	if err != nil {
		return identity{}, fmt.Errorf("failed to list projects: %w", err)
	}
	projectID := ""
	for _, p := range projects {
		if p.Name == projectName {
			projectID = p.ID
			break
		}
	}
	if projectID == "" {
		return identity{}, fmt.Errorf("project %q not found", projectName)
	}

	keys, err := m.client.GetSSHKeys(ctx, projectID)
	if err != nil {
		return identity{}, fmt.Errorf("failed to list ssh keys: %w", err)
	}
	sshKeyID := ""
	for _, k := range keys {
		if k.Name == sshKeyName {
			sshKeyID = k.ID
			break
		}
	}
	if sshKeyID == "" {
		return identity{}, fmt.Errorf("ssh key %q not found", sshKeyName)
	}

	m.log.V(1).Info("resolved identity", "user_id", user.ID,
		"project_id", projectID, "ssh_key_id", sshKeyID)
	return identity{UserID: user.ID, ProjectID: projectID, SSHKeyID: sshKeyID}, nil
}

func thresholdPrice(cfg *taskconfig.TaskConfig) *float64 {
	if cfg.TaskManagement == nil {
		return nil
	}
	return cfg.TaskManagement.UtilityThresholdPrice
}

// composeRequest translates the task definition into a script composition
// request.
func composeRequest(cfg *taskconfig.TaskConfig) (startup.Request, error) {
	mappings, err := cfg.PortMappings()
	if err != nil {
		return startup.Request{}, err
	}

	req := startup.Request{CustomScript: cfg.StartupScript}
	for _, pm := range mappings {
		req.Ports = append(req.Ports, startup.PortMapping{
			External: pm.External,
			Internal: pm.Internal,
		})
	}
	if es := cfg.EphemeralStorage; es != nil {
		for _, mount := range es.Mounts {
			req.EphemeralMounts = append(req.EphemeralMounts, startup.Mount{
				Device: mount.Device,
				Dir:    mount.Dir,
			})
		}
	}
	if ps := cfg.PersistentStorage; ps != nil && ps.MountDir != "" {
		req.PersistentMountPoints = []string{ps.MountDir}
	}
	if ci := cfg.ContainerImage; ci != nil {
		req.Container = &startup.ContainerSpec{
			Image:        ci.ImageName,
			BuildContext: ci.BuildContext,
			RunOptions:   ci.RunOptions,
		}
	}
	return req, nil
}
