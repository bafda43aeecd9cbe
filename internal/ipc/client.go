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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to take its lock and resume watching.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop watching and release its lock.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Watch switches the daemon to watching projectRoot.
func (c *Client) Watch(projectRoot string) (*WatchResponse, error) {
	return call[WatchResponse](c, "Watch", WatchRequest{ProjectRoot: projectRoot})
}

// Unwatch stops the watch session.
func (c *Client) Unwatch() (*UnwatchResponse, error) {
	return call[UnwatchResponse](c, "Unwatch", UnwatchRequest{})
}

// AssetList lists tracked assets; an empty category lists all of them.
func (c *Client) AssetList(category string) (*AssetListResponse, error) {
	return call[AssetListResponse](c, "AssetList", AssetListRequest{Category: category})
}

// AssetDescribe returns one asset by relative path or id.
func (c *Client) AssetDescribe(key string) (*AssetDescribeResponse, error) {
	return call[AssetDescribeResponse](c, "AssetDescribe", AssetDescribeRequest{Key: key})
}

// Rescan reconciles the watched project against a fresh scan.
func (c *Client) Rescan() (*RescanResponse, error) {
	return call[RescanResponse](c, "Rescan", RescanRequest{})
}

// Import copies files into a project through the daemon.
func (c *Client) Import(req ImportRequest) (*ImportResponse, error) {
	return call[ImportResponse](c, "Import", req)
}

// Set applies user metadata to an asset.
func (c *Client) Set(req SetRequest) (*SetResponse, error) {
	return call[SetResponse](c, "Set", req)
}

// Events fetches hub events after a cursor, optionally long-polling.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	return call[EventsResponse](c, "Events", req)
}

// Projects lists projects the daemon has metadata for.
func (c *Client) Projects() (*ProjectsResponse, error) {
	return call[ProjectsResponse](c, "Projects", ProjectsRequest{})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
