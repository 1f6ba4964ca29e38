package foundry

import "time"

// User is the authenticated Foundry account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Project is a Foundry project a user belongs to.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SSHKey is a registered public key usable in bids.
type SSHKey struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Region is a Foundry region where disks and instances live.
type Region struct {
	RegionID string `json:"region_id"`
	Name     string `json:"name,omitempty"`
}

// Auction is one spot auction for compute capacity. The auction mechanism
// itself runs server-side; this client only reads auctions and submits a
// limit price.
type Auction struct {
	ClusterID              string   `json:"cluster_id"`
	GPUType                string   `json:"gpu_type,omitempty"`
	InventoryQuantity      int      `json:"inventory_quantity,omitempty"`
	NumGPUs                int      `json:"num_gpu,omitempty"`
	IntranodeInterconnect  string   `json:"intranode_interconnect,omitempty"`
	InternodeInterconnect  string   `json:"internode_interconnect,omitempty"`
	FCPInstance            string   `json:"fcp_instance,omitempty"`
	InstanceTypeID         string   `json:"instance_type_id,omitempty"`
	LastPrice              float64  `json:"last_price,omitempty"`
	Region                 string   `json:"region,omitempty"`
	RegionID               string   `json:"region_id,omitempty"`
	ResourceSpecificationID string  `json:"resource_specification_id,omitempty"`
}

// Bid is a placed spot bid as returned by the API.
type Bid struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Status           string   `json:"status,omitempty"`
	CreatedAt        string   `json:"created_at,omitempty"`
	DeactivatedAt    string   `json:"deactivated_at,omitempty"`
	LimitPriceCents  int      `json:"limit_price_cents,omitempty"`
	InstanceQuantity int      `json:"instance_quantity,omitempty"`
	InstanceTypeID   string   `json:"instance_type_id,omitempty"`
	ClusterID        string   `json:"cluster_id,omitempty"`
	ProjectID        string   `json:"project_id,omitempty"`
	SSHKeyIDs        []string `json:"ssh_key_ids,omitempty"`
	StartupScript    string   `json:"startup_script,omitempty"`
	UserID           string   `json:"user_id,omitempty"`
	DiskIDs          []string `json:"disk_ids,omitempty"`
}

// DiskAttachment describes a persistent disk referenced by a bid.
type DiskAttachment struct {
	DiskID        string `json:"disk_id"`
	Name          string `json:"name"`
	VolumeName    string `json:"volume_name,omitempty"`
	DiskInterface string `json:"disk_interface"`
	RegionID      string `json:"region_id,omitempty"`
	Size          int    `json:"size"`
	SizeUnit      string `json:"size_unit,omitempty"`
}

// BidPayload is the request body for placing a bid.
type BidPayload struct {
	ClusterID        string           `json:"cluster_id"`
	InstanceQuantity int              `json:"instance_quantity"`
	InstanceTypeID   string           `json:"instance_type_id"`
	LimitPriceCents  int              `json:"limit_price_cents"`
	OrderName        string           `json:"order_name"`
	ProjectID        string           `json:"project_id"`
	SSHKeyIDs        []string         `json:"ssh_key_ids"`
	StartupScript    string           `json:"startup_script,omitempty"`
	UserID           string           `json:"user_id"`
	DiskAttachments  []DiskAttachment `json:"disk_attachments,omitempty"`
}

// Instance is a running or terminated compute instance.
type Instance struct {
	InstanceID     string     `json:"instance_id"`
	Name           string     `json:"name,omitempty"`
	InstanceStatus string     `json:"instance_status,omitempty"`
	InstanceTypeID string     `json:"instance_type_id,omitempty"`
	ClusterID      string     `json:"cluster_id,omitempty"`
	OrderID        string     `json:"order_id,omitempty"`
	OrderType      string     `json:"order_type,omitempty"`
	SSHDestination string     `json:"ssh_destination,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	Region         string     `json:"region,omitempty"`
	Category       string     `json:"category,omitempty"`
	CreatedTS      *time.Time `json:"created_ts,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}
