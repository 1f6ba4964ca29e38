package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/foundrycloud/flow/internal/retry"
)

// DefaultBaseURL is the production Foundry API endpoint.
const DefaultBaseURL = "https://api.mlfoundry.com"

const defaultTimeout = 30 * time.Second

// RealClient implements Client against the Foundry HTTP API.
type RealClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logr.Logger
	maxRetries int
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) ClientOption {
	return func(c *RealClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *RealClient) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logr.Logger) ClientOption {
	return func(c *RealClient) {
		c.log = log
	}
}

// WithMaxRetries bounds retries of transiently failing requests.
func WithMaxRetries(n int) ClientOption {
	return func(c *RealClient) {
		c.maxRetries = n
	}
}

// NewRealClient returns a client that sends the given bearer token with
// every request. Obtain the token via Login.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logr.Discard(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates with email and password and returns a bearer token
// for NewRealClient. Rejected credentials yield an AuthenticationError.
func Login(ctx context.Context, email, password string, opts ...ClientOption) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email must not be empty")
	}
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	c := NewRealClient("", opts...)
	body := map[string]string{"email": email, "password": password}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", body, &result); err != nil {
		if statusCode(err) == http.StatusUnauthorized || statusCode(err) == http.StatusForbidden {
			return "", &AuthenticationError{Reason: "invalid credentials"}
		}
		return "", err
	}
	if result.AccessToken == "" {
		return "", &AuthenticationError{Reason: "no access token in response"}
	}
	return result.AccessToken, nil
}

// GetUser fetches the authenticated user.
func (c *RealClient) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProjects lists the projects the user belongs to.
func (c *RealClient) GetProjects(ctx context.Context, userID string) ([]Project, error) {
	var projects []Project
	path := fmt.Sprintf("/users/%s/projects", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetSSHKeys lists the SSH keys registered on a project.
func (c *RealClient) GetSSHKeys(ctx context.Context, projectID string) ([]SSHKey, error) {
	var keys []SSHKey
	path := fmt.Sprintf("/projects/%s/ssh_keys", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// GetRegions lists available regions.
func (c *RealClient) GetRegions(ctx context.Context) ([]Region, error) {
	var regions []Region
	if err := c.do(ctx, http.MethodGet, "/regions", nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// GetInstances returns instances grouped by category (spot, reserved, ...)
// as the API reports them.
func (c *RealClient) GetInstances(ctx context.Context, projectID string) (map[string][]Instance, error) {
	var instances map[string][]Instance
	path := fmt.Sprintf("/projects/%s/all_instances", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// GetAuctions lists the spot auctions visible to a project.
func (c *RealClient) GetAuctions(ctx context.Context, projectID string) ([]Auction, error) {
	var auctions []Auction
	path := fmt.Sprintf("/projects/%s/spot-auctions/auctions", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &auctions); err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetBids lists the project's spot bids.
func (c *RealClient) GetBids(ctx context.Context, projectID string) ([]Bid, error) {
	var bids []Bid
	path := fmt.Sprintf("/projects/%s/spot-auctions/bids", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &bids); err != nil {
		return nil, err
	}
	return bids, nil
}

// PlaceBid submits a spot bid. A duplicate order name surfaces as a
// conflict; use IsConflict to branch on it.
func (c *RealClient) PlaceBid(ctx context.Context, projectID string, payload BidPayload) (*Bid, error) {
	var bid Bid
	path := fmt.Sprintf("/projects/%s/spot-auctions/bids", projectID)
	if err := c.do(ctx, http.MethodPost, path, payload, &bid); err != nil {
		return nil, err
	}
	return &bid, nil
}

// CancelBid deactivates a bid by id.
func (c *RealClient) CancelBid(ctx context.Context, projectID, bidID string) error {
	path := fmt.Sprintf("/projects/%s/spot-auctions/bids/%s", projectID, bidID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateDisk creates a persistent disk and returns it with the server
// assigned disk id.
func (c *RealClient) CreateDisk(ctx context.Context, projectID string, disk DiskAttachment) (*DiskAttachment, error) {
	var created DiskAttachment
	path := fmt.Sprintf("/projects/%s/disks", projectID)
	if err := c.do(ctx, http.MethodPost, path, disk, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetDisk fetches a persistent disk by id or name.
func (c *RealClient) GetDisk(ctx context.Context, projectID, diskID string) (*DiskAttachment, error) {
	var disk DiskAttachment
	path := fmt.Sprintf("/projects/%s/disks/%s", projectID, diskID)
	if err := c.do(ctx, http.MethodGet, path, nil, &disk); err != nil {
		return nil, err
	}
	return &disk, nil
}

// do sends one API request, retrying transient failures with backoff.
// Mutating POSTs retry too: the API keys bids by order name, so a replay of
// a bid that actually landed surfaces as a conflict rather than a duplicate.
func (c *RealClient) do(ctx context.Context, method, path string, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	operation := func() error {
		err := c.doOnce(ctx, method, path, encoded, out)
		if err != nil && !isRetryable(err) {
			return retry.Fatal(err)
		}
		return err
	}
	err := retry.WithExponentialBackoff(ctx, operation,
		retry.WithMaxRetries(c.maxRetries),
		retry.WithInitialDelay(time.Second),
	)
	if err != nil {
		// Unwrap the retry package's framing so callers can errors.As
		// straight to APIError.
		c.log.V(1).Info("request failed", "method", method, "path", path, "error", err.Error())
	}
	return err
}

func (c *RealClient) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.V(1).Info("sending request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    apiMessage(data),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// apiMessage pulls a human-readable message out of an error response body.
func apiMessage(data []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Detail
}
