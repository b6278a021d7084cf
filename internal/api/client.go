package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/httputil"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
)

// ErrNotMocap is returned by Pair when the peer is not a retargeting server.
var ErrNotMocap = errors.New("peer is not a mocap server")

// Client talks to a running server. It implements ingest.Handler, so a
// replay can be pointed at a remote server instead of a local driver.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient returns a client for the server at baseURL. A nil c uses the
// default HTTP client.
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	if c == nil {
		c = httputil.NewStandardClient(nil)
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: c}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if err := httputil.ResponseError(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// Pair checks that the peer is a retargeting server and returns the
// protocol version it reports.
func (c *Client) Pair(ctx context.Context) (int, error) {
	var resp struct {
		IsMocap bool `json:"is_mocap"`
		Version int  `json:"version"`
	}
	if err := c.do(ctx, http.MethodGet, "/pair", nil, &resp); err != nil {
		return 0, err
	}
	if !resp.IsMocap {
		return 0, ErrNotMocap
	}
	return resp.Version, nil
}

// HandlePayload posts one landmarker payload to the matching set endpoint.
func (c *Client) HandlePayload(data []byte) (string, error) {
	env, err := ingest.Decode(data)
	if err != nil {
		return ingest.EventTypeUnknown, err
	}
	kind := env.EventType()
	return kind, c.do(context.Background(), http.MethodPost, "/set_"+kind, data, nil)
}

// Params fetches the live tuning document.
func (c *Client) Params(ctx context.Context) (*config.TuningConfig, error) {
	var cfg config.TuningConfig
	if err := c.do(ctx, http.MethodGet, "/api/params", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateParams merges update into the live tuning and returns the result.
func (c *Client) UpdateParams(ctx context.Context, update *config.TuningConfig) (*config.TuningConfig, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tuning update: %w", err)
	}
	var cfg config.TuningConfig
	if err := c.do(ctx, http.MethodPost, "/api/params", body, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var _ ingest.Handler = (*Client)(nil)
