// Package cluster implements the coordinator that sits in front of a
// primary/secondary group: it probes each node's /status, finds the
// current primary, and runs a minimal election when none is found.
//
// The election is deliberately naive: deterministic endpoint-order probing,
// first node willing to promote wins. No liveness history, no WAL-length
// comparison, no quorum. That is an accepted weakness, not an oversight —
// a split-brain is possible if a stale primary comes back after a new one
// was elected. See DESIGN.md.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	statusTimeout  = 1 * time.Second
	promoteTimeout = 2 * time.Second
)

// Status mirrors a node's /status response.
type Status struct {
	Role    string `json:"role"`
	Primary bool   `json:"primary"`
}

// Coordinator probes a fixed, ordered list of node endpoints.
type Coordinator struct {
	endpoints  []string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Coordinator over endpoints, probed in the given order.
// Order matters: it is the tie-break for election.
func New(endpoints []string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		endpoints:  append([]string(nil), endpoints...),
		httpClient: &http.Client{Timeout: promoteTimeout},
		logger:     logger,
	}
}

// FindPrimary returns the URL of the first endpoint currently reporting
// itself as primary, or "" if none responds or none is primary.
func (c *Coordinator) FindPrimary(ctx context.Context) string {
	for _, endpoint := range c.endpoints {
		st, err := c.getStatus(ctx, endpoint)
		if err != nil {
			continue
		}
		if st.Primary {
			return endpoint
		}
	}
	return ""
}

// ElectPrimary walks the endpoints in order; the first one that responds
// and is already primary is returned as-is. Otherwise the first one that
// responds at all is promoted and returned. Endpoints that don't respond
// are skipped entirely — a dead node can't win an election.
func (c *Coordinator) ElectPrimary(ctx context.Context) string {
	for _, endpoint := range c.endpoints {
		st, err := c.getStatus(ctx, endpoint)
		if err != nil {
			continue
		}
		if st.Primary {
			return endpoint
		}
		if c.promote(ctx, endpoint) {
			c.logger.Info("elected new primary", zap.String("endpoint", endpoint))
			return endpoint
		}
	}
	c.logger.Warn("election found no viable primary")
	return ""
}

func (c *Coordinator) getStatus(ctx context.Context, endpoint string) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cluster: %s/status returned %d", endpoint, resp.StatusCode)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Coordinator) promote(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, promoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/promote_to_primary", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("promote request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
