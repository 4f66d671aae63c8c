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
	if err := c.client.Call("Microlesson.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Microlesson.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Microlesson.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Microlesson.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Microlesson.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VideoList returns queued videos optionally filtered by statuses.
func (c *Client) VideoList(statuses []string) (*VideoListResponse, error) {
	var resp VideoListResponse
	req := VideoListRequest{Statuses: statuses}
	if err := c.client.Call("Microlesson.VideoList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VideoStatus returns details and segments for a single video.
func (c *Client) VideoStatus(id int64) (*VideoStatusResponse, error) {
	var resp VideoStatusResponse
	req := VideoStatusRequest{ID: id}
	if err := c.client.Call("Microlesson.VideoStatus", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ingest admits a local file or remote URL into the pipeline.
func (c *Client) Ingest(req IngestRequest) (*IngestResponse, error) {
	var resp IngestResponse
	if err := c.client.Call("Microlesson.Ingest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenderSegment claims a single segment for re-rendering.
func (c *Client) RenderSegment(videoID int64, sequence int) (*RenderSegmentResponse, error) {
	var resp RenderSegmentResponse
	req := RenderSegmentRequest{VideoID: videoID, Sequence: sequence}
	if err := c.client.Call("Microlesson.RenderSegment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search queries the catalog for lesson-source candidates.
func (c *Client) Search(topic, level string) (*SearchResponse, error) {
	var resp SearchResponse
	req := SearchRequest{Topic: topic, Level: level}
	if err := c.client.Call("Microlesson.Search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes all videos from the queue.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.client.Call("Microlesson.QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearCompleted removes only completed videos from the queue.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	if err := c.client.Call("Microlesson.QueueClearCompleted", QueueClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearFailed removes failed videos from the queue.
func (c *Client) QueueClearFailed() (*QueueClearFailedResponse, error) {
	var resp QueueClearFailedResponse
	if err := c.client.Call("Microlesson.QueueClearFailed", QueueClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset resets videos stuck in processing states.
func (c *Client) QueueReset() (*QueueResetResponse, error) {
	var resp QueueResetResponse
	if err := c.client.Call("Microlesson.QueueReset", QueueResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry retries failed videos.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	req := QueueRetryRequest{IDs: ids}
	if err := c.client.Call("Microlesson.QueueRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth returns queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.client.Call("Microlesson.QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
