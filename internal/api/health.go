package api

import (
	"context"
	"net/http"
)

// HealthStatus is the service health report
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthCheck probes the service. Always unauthenticated, even when an
// access credential is set.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	env, err := c.doWithRetry(ctx, http.MethodGet, "/health", nil, true)
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := env.Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
