package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"guardian/config"
	"guardian/internal/logging"
	"guardian/internal/tokens"
)

// Client is the Guardian backend API client. It owns the request
// pipeline, the retry policy and a token manager; all domain facades
// route through it. Safe for concurrent use.
type Client struct {
	baseURL       string
	transport     *transport
	tokens        *tokens.Manager
	retryAttempts int
	retryDelay    time.Duration
	logger        *slog.Logger
}

// New creates a client from validated configuration. Persisted
// credentials are loaded from the store immediately; a failed load
// leaves the client unauthenticated rather than failing construction.
func New(cfg config.ClientConfig, store tokens.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	if store == nil {
		store = tokens.NewMemStore()
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		transport: &transport{
			client:  &http.Client{},
			timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		logger:        logger,
	}
	c.tokens = tokens.NewManager(store, c.refreshCall, logger)
	c.tokens.Load(context.Background())
	return c
}

// Tokens exposes the credential manager for session overrides
// (SetAccessToken / ClearAccessToken) and explicit clearing.
func (c *Client) Tokens() *tokens.Manager {
	return c.tokens
}

// do executes exactly one logical request, including auth header
// injection and one-shot 401 recovery.
func (c *Client) do(ctx context.Context, method, path string, body any, skipAuth bool) (*Envelope, error) {
	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, payload, skipAuth, true)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, skipAuth, allowRefresh bool) (*Envelope, error) {
	// Paths are appended verbatim; callers own the formatting
	url := c.baseURL + path
	headers := c.headers(payload != nil, skipAuth)

	c.logger.Debug("API request",
		"component", "api",
		"method", method,
		"url", url,
	)

	status, respBody, err := c.transport.send(ctx, method, url, headers, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !skipAuth && allowRefresh {
		if c.tokens.Refresh(ctx) {
			// Re-issue the same request once with the new credential.
			// A second 401 falls through to the generic error path.
			return c.send(ctx, method, path, payload, skipAuth, false)
		}
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Warn("Failed to clear credentials after expired session",
				"component", "api", "error", err)
		}
		return nil, &SessionExpiredError{}
	}

	if status < 200 || status >= 300 {
		return nil, parseAPIError(status, respBody)
	}

	if len(respBody) == 0 {
		return &Envelope{Success: true}, nil
	}
	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	return &env, nil
}

func (c *Client) headers(hasBody, skipAuth bool) http.Header {
	headers := http.Header{}
	if hasBody {
		headers.Set("Content-Type", "application/json")
	}
	if !skipAuth {
		if token := c.tokens.AccessToken(); token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}
	return headers
}

// refreshCall is the refresh function wired into the token manager:
// one skip-auth call to the refresh endpoint.
func (c *Client) refreshCall(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	env, err := c.do(ctx, http.MethodPost, "/auth/refresh", body, true)
	if err != nil {
		return tokens.Pair{}, err
	}

	var result tokenPayload
	if err := env.Decode(&result); err != nil {
		return tokens.Pair{}, err
	}
	if result.AccessToken == "" {
		return tokens.Pair{}, fmt.Errorf("refresh response missing access token")
	}
	return tokens.Pair{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}, nil
}

func parseAPIError(status int, body []byte) *APIError {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return &APIError{Status: status, Message: env.Error.Message, Code: env.Error.Code}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("request failed with status %d", status)}
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return payload, nil
}

// Get issues a GET request through the retry controller
func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.doWithRetry(ctx, http.MethodGet, path, nil, false)
}

// Post issues a POST request (no retry; writes are not assumed idempotent)
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, body, false)
}

// Put issues a PUT request
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, path, body, false)
}

// Patch issues a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPatch, path, body, false)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil, false)
}
