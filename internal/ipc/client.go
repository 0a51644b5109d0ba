package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Tome.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Tome.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DaemonStatus retrieves the daemon status.
func (c *Client) DaemonStatus() (*DaemonStatusResponse, error) {
	var resp DaemonStatusResponse
	if err := c.client.Call("Tome.DaemonStatus", DaemonStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit registers a source document for processing.
func (c *Client) Submit(sourcePath, title string) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{SourcePath: sourcePath, Title: title}
	if err := c.client.Call("Tome.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns per-stage progress for a single document.
func (c *Client) Status(id int64) (*DocumentStatusResponse, error) {
	var resp DocumentStatusResponse
	req := DocumentStatusRequest{ID: id}
	if err := c.client.Call("Tome.Status", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns catalog documents optionally filtered by statuses.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	var resp ListResponse
	req := ListRequest{Statuses: statuses}
	if err := c.client.Call("Tome.List", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns details for a single document.
func (c *Client) Describe(id int64) (*DescribeResponse, error) {
	var resp DescribeResponse
	req := DescribeRequest{ID: id}
	if err := c.client.Call("Tome.Describe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry requeues failed documents.
func (c *Client) Retry(ids []int64) (*RetryResponse, error) {
	var resp RetryResponse
	req := RetryRequest{IDs: ids}
	if err := c.client.Call("Tome.Retry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes documents from the catalog.
func (c *Client) Remove(ids []int64) (*RemoveResponse, error) {
	var resp RemoveResponse
	req := RemoveRequest{IDs: ids}
	if err := c.client.Call("Tome.Remove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear removes all documents from the catalog.
func (c *Client) Clear() (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.client.Call("Tome.Clear", ClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCompleted removes only completed documents from the catalog.
func (c *Client) ClearCompleted() (*ClearCompletedResponse, error) {
	var resp ClearCompletedResponse
	if err := c.client.Call("Tome.ClearCompleted", ClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearFailed removes failed documents from the catalog.
func (c *Client) ClearFailed() (*ClearFailedResponse, error) {
	var resp ClearFailedResponse
	if err := c.client.Call("Tome.ClearFailed", ClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sweep runs the catalog maintenance pass.
func (c *Client) Sweep() (*SweepResponse, error) {
	var resp SweepResponse
	if err := c.client.Call("Tome.Sweep", SweepRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Alerts lists recorded alerts optionally filtered by status.
func (c *Client) Alerts(status string, limit int) (*AlertsResponse, error) {
	var resp AlertsResponse
	req := AlertsRequest{Status: status, Limit: limit}
	if err := c.client.Call("Tome.Alerts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search queries the index for documents matching the given terms.
func (c *Client) Search(terms []string, limit int) (*SearchResponse, error) {
	var resp SearchResponse
	req := SearchRequest{Terms: terms, Limit: limit}
	if err := c.client.Call("Tome.Search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CatalogHealth returns catalog status counts.
func (c *Client) CatalogHealth() (*CatalogHealthResponse, error) {
	var resp CatalogHealthResponse
	if err := c.client.Call("Tome.CatalogHealth", CatalogHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Tome.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Tome.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Tome.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
