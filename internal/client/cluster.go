package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// Status mirrors a node's /status response.
type Status struct {
	Role    string `json:"role"`
	Primary bool   `json:"primary"`
}

// Status fetches the node's current role.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var st Status
	return &st, json.NewDecoder(resp.Body).Decode(&st)
}

// Promote asks the node to become primary. Idempotent on the server side.
func (c *Client) Promote(ctx context.Context) error {
	return c.postOK(ctx, "/promote_to_primary", map[string]any{})
}
