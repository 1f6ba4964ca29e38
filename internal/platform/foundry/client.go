// Package foundry is the client for the Foundry Cloud Platform API:
// authentication, project and SSH key lookup, spot auction discovery, bid
// placement and persistent disk management.
package foundry

import "context"

// Client is the Foundry API surface the managers consume. Implemented by
// RealClient; tests substitute their own.
type Client interface {
	GetUser(ctx context.Context) (*User, error)
	GetProjects(ctx context.Context, userID string) ([]Project, error)
	GetSSHKeys(ctx context.Context, projectID string) ([]SSHKey, error)
	GetRegions(ctx context.Context) ([]Region, error)

	GetInstances(ctx context.Context, projectID string) (map[string][]Instance, error)
	GetAuctions(ctx context.Context, projectID string) ([]Auction, error)

	GetBids(ctx context.Context, projectID string) ([]Bid, error)
	PlaceBid(ctx context.Context, projectID string, payload BidPayload) (*Bid, error)
	CancelBid(ctx context.Context, projectID, bidID string) error

	CreateDisk(ctx context.Context, projectID string, disk DiskAttachment) (*DiskAttachment, error)
	GetDisk(ctx context.Context, projectID, diskID string) (*DiskAttachment, error)
}
