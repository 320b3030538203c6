package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"guardian/internal/idgen"
)

// SyncService groups the offline sync endpoints
type SyncService struct {
	c *Client
}

// Sync returns the offline sync facade
func (c *Client) Sync() *SyncService {
	return &SyncService{c: c}
}

// Action is one queued offline action replayed once connectivity returns
type Action struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// SyncResult reports how many actions the server accepted
type SyncResult struct {
	SyncedCount int `json:"syncedCount"`
}

// NewAction builds an action with a generated ID and capture timestamp
func NewAction(actionType string, payload json.RawMessage) Action {
	return Action{
		ID:        idgen.NewAction(),
		Type:      actionType,
		Payload:   payload,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Actions posts a batch of queued offline actions
func (s *SyncService) Actions(ctx context.Context, actions []Action) (*SyncResult, error) {
	body := struct {
		Actions []Action `json:"actions"`
	}{Actions: actions}

	env, err := s.c.do(ctx, http.MethodPost, "/sync/actions", body, false)
	if err != nil {
		return nil, err
	}
	var result SyncResult
	if err := env.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
