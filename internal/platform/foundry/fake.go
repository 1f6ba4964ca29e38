package foundry

import "context"

// FakeClient is a test double for Client. Each method delegates to the
// corresponding function field when set and returns zero values otherwise.
type FakeClient struct {
	GetUserFunc      func(ctx context.Context) (*User, error)
	GetProjectsFunc  func(ctx context.Context, userID string) ([]Project, error)
	GetSSHKeysFunc   func(ctx context.Context, projectID string) ([]SSHKey, error)
	GetRegionsFunc   func(ctx context.Context) ([]Region, error)
	GetInstancesFunc func(ctx context.Context, projectID string) (map[string][]Instance, error)
	GetAuctionsFunc  func(ctx context.Context, projectID string) ([]Auction, error)
	GetBidsFunc      func(ctx context.Context, projectID string) ([]Bid, error)
	PlaceBidFunc     func(ctx context.Context, projectID string, payload BidPayload) (*Bid, error)
	CancelBidFunc    func(ctx context.Context, projectID, bidID string) error
	CreateDiskFunc   func(ctx context.Context, projectID string, disk DiskAttachment) (*DiskAttachment, error)
	GetDiskFunc      func(ctx context.Context, projectID, diskID string) (*DiskAttachment, error)
}

var _ Client = (*FakeClient)(nil)

func (f *FakeClient) GetUser(ctx context.Context) (*User, error) {
	if f.GetUserFunc != nil {
		return f.GetUserFunc(ctx)
	}
	return &User{}, nil
}

func (f *FakeClient) GetProjects(ctx context.Context, userID string) ([]Project, error) {
	if f.GetProjectsFunc != nil {
		return f.GetProjectsFunc(ctx, userID)
	}
	return nil, nil
}

func (f *FakeClient) GetSSHKeys(ctx context.Context, projectID string) ([]SSHKey, error) {
	if f.GetSSHKeysFunc != nil {
		return f.GetSSHKeysFunc(ctx, projectID)
	}
	return nil, nil
}

func (f *FakeClient) GetRegions(ctx context.Context) ([]Region, error) {
	if f.GetRegionsFunc != nil {
		return f.GetRegionsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeClient) GetInstances(ctx context.Context, projectID string) (map[string][]Instance, error) {
	if f.GetInstancesFunc != nil {
		return f.GetInstancesFunc(ctx, projectID)
	}
	return nil, nil
}

func (f *FakeClient) GetAuctions(ctx context.Context, projectID string) ([]Auction, error) {
	if f.GetAuctionsFunc != nil {
		return f.GetAuctionsFunc(ctx, projectID)
	}
	return nil, nil
}

func (f *FakeClient) GetBids(ctx context.Context, projectID string) ([]Bid, error) {
	if f.GetBidsFunc != nil {
		return f.GetBidsFunc(ctx, projectID)
	}
	return nil, nil
}

func (f *FakeClient) PlaceBid(ctx context.Context, projectID string, payload BidPayload) (*Bid, error) {
	if f.PlaceBidFunc != nil {
		return f.PlaceBidFunc(ctx, projectID, payload)
	}
	return &Bid{}, nil
}

func (f *FakeClient) CancelBid(ctx context.Context, projectID, bidID string) error {
	if f.CancelBidFunc != nil {
		return f.CancelBidFunc(ctx, projectID, bidID)
	}
	return nil
}

func (f *FakeClient) CreateDisk(ctx context.Context, projectID string, disk DiskAttachment) (*DiskAttachment, error) {
	if f.CreateDiskFunc != nil {
		return f.CreateDiskFunc(ctx, projectID, disk)
	}
	d := disk
	return &d, nil
}

func (f *FakeClient) GetDisk(ctx context.Context, projectID, diskID string) (*DiskAttachment, error) {
	if f.GetDiskFunc != nil {
		return f.GetDiskFunc(ctx, projectID, diskID)
	}
	return &DiskAttachment{DiskID: diskID}, nil
}
