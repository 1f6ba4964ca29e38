// Package bid builds and submits spot bids.
package bid

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/foundrycloud/flow/internal/config"
	"github.com/foundrycloud/flow/internal/platform/foundry"
)

// Params carries everything needed to construct a bid payload.
type Params struct {
	ClusterID        string
	InstanceQuantity int
	InstanceTypeID   string
	LimitPriceCents  int
	OrderName        string
	ProjectID        string
	SSHKeyIDs        []string
	UserID           string
	StartupScript    string
	DiskAttachments  []foundry.DiskAttachment
}

func (p Params) validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"cluster id", p.ClusterID},
		{"instance type id", p.InstanceTypeID},
		{"order name", p.OrderName},
		{"project id", p.ProjectID},
		{"user id", p.UserID},
	} {
		if field.value == "" {
			return fmt.Errorf("%s must not be empty", field.name)
		}
	}
	if p.InstanceQuantity <= 0 {
		return fmt.Errorf("instance quantity must be greater than zero")
	}
	if p.LimitPriceCents <= 0 {
		return fmt.Errorf("limit price must be greater than zero")
	}
	if len(p.SSHKeyIDs) == 0 {
		return fmt.Errorf("at least one ssh key id is required")
	}
	return nil
}

// LimitPriceCents resolves the limit price for a bid. A user-supplied
// threshold price in dollars wins over the priority level's table price.
func LimitPriceCents(priority string, utilityThresholdPrice *float64) (int, error) {
	if utilityThresholdPrice != nil {
		if *utilityThresholdPrice <= 0 {
			return 0, fmt.Errorf("invalid utility_threshold_price value: %v", *utilityThresholdPrice)
		}
		return config.DollarsToCents(*utilityThresholdPrice), nil
	}
	return config.PriorityPriceCents(priority)
}

// BuildPayload validates the params and assembles the API payload.
func BuildPayload(p Params) (foundry.BidPayload, error) {
	if err := p.validate(); err != nil {
		return foundry.BidPayload{}, fmt.Errorf("invalid bid parameters: %w", err)
	}
	return foundry.BidPayload{
		ClusterID:        p.ClusterID,
		InstanceQuantity: p.InstanceQuantity,
		InstanceTypeID:   p.InstanceTypeID,
		LimitPriceCents:  p.LimitPriceCents,
		OrderName:        p.OrderName,
		ProjectID:        p.ProjectID,
		SSHKeyIDs:        p.SSHKeyIDs,
		StartupScript:    p.StartupScript,
		UserID:           p.UserID,
		DiskAttachments:  p.DiskAttachments,
	}, nil
}

// Manager submits and cancels bids through the API client.
type Manager struct {
	client foundry.Client
	log    logr.Logger
}

// NewManager returns a Manager backed by the given API client.
func NewManager(client foundry.Client, log logr.Logger) *Manager {
	return &Manager{client: client, log: log}
}

// Submit places a single bid built from params.
func (m *Manager) Submit(ctx context.Context, p Params) (*foundry.Bid, error) {
	payload, err := BuildPayload(p)
	if err != nil {
		return nil, err
	}
	m.log.Info("submitting bid", "order_name", payload.OrderName,
		"cluster_id", payload.ClusterID, "instances", payload.InstanceQuantity,
		"limit_price_cents", payload.LimitPriceCents)

	placed, err := m.client.PlaceBid(ctx, p.ProjectID, payload)
	if err != nil {
		if foundry.IsConflict(err) {
			return nil, fmt.Errorf("a bid named %q already exists: %w", payload.OrderName, err)
		}
		return nil, fmt.Errorf("bid submission failed: %w", err)
	}
	m.log.Info("bid submitted", "bid_id", placed.ID)
	return placed, nil
}

// SubmitChunked splits the requested quantity into bids of at most chunkSize
// instances so the auction can fill the order partially. Already placed
// chunks are returned alongside the error when a later chunk fails.
func (m *Manager) SubmitChunked(ctx context.Context, p Params, chunkSize int) ([]foundry.Bid, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid bid parameters: %w", err)
	}

	var placed []foundry.Bid
	remaining := p.InstanceQuantity
	for chunk := 1; remaining > 0; chunk++ {
		chunkParams := p
		chunkParams.InstanceQuantity = min(chunkSize, remaining)
		chunkParams.OrderName = fmt.Sprintf("%s-chunk%d", p.OrderName, chunk)

		bid, err := m.Submit(ctx, chunkParams)
		if err != nil {
			return placed, fmt.Errorf("chunk %d of order %s failed: %w", chunk, p.OrderName, err)
		}
		placed = append(placed, *bid)
		remaining -= chunkParams.InstanceQuantity
	}
	return placed, nil
}

// List returns the project's bids.
func (m *Manager) List(ctx context.Context, projectID string) ([]foundry.Bid, error) {
	bids, err := m.client.GetBids(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

// FindByName returns the bid with the given order name, or nil.
func (m *Manager) FindByName(ctx context.Context, projectID, name string) (*foundry.Bid, error) {
	bids, err := m.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range bids {
		if bids[i].Name == name {
			return &bids[i], nil
		}
	}
	return nil, nil
}

// Cancel deactivates a bid.
func (m *Manager) Cancel(ctx context.Context, projectID, bidID string) error {
	m.log.Info("canceling bid", "bid_id", bidID)
	if err := m.client.CancelBid(ctx, projectID, bidID); err != nil {
		return fmt.Errorf("failed to cancel bid %s: %w", bidID, err)
	}
	return nil
}
