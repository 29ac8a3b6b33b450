// Package client is a small SDK over the daemon's HTTP API, used by
// the TUI and the MCP server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rmax-ai/traylord/pkg/api"
)

// DefaultEndpoint matches the daemon's default listen address.
const DefaultEndpoint = "http://127.0.0.1:8094"

// Client is the traylord SDK client.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a new traylord client.
// endpoint defaults to DefaultEndpoint if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Health checks whether the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/v1/health", &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("daemon unhealthy: %q", status.Status)
	}
	return nil
}

// GetState fetches the latest poll state and rendered label.
func (c *Client) GetState(ctx context.Context) (api.StateResponse, error) {
	var resp api.StateResponse
	err := c.getJSON(ctx, "/v1/state", &resp)
	return resp, err
}

// GetLabel fetches the compact plain-text label.
func (c *Client) GetLabel(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/v1/label", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
