package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/config"
	"guardian/internal/tokens"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.ClientConfig{
		BaseURL:       baseURL,
		TimeoutMs:     2000,
		RetryAttempts: 3,
		RetryDelayMs:  10,
	}
	return New(cfg, tokens.NewMemStore(), nil)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": "test-request",
		},
	})
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"message": message, "code": code},
	})
}

func TestClient_SkipAuthOmitsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "skip-auth request must not carry credentials")
		writeData(w, http.StatusOK, map[string]string{"status": "healthy", "service": "guardian"})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.Tokens().SetAccessToken("valid-token")

	status, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}

func TestClient_ContentTypeSetOnlyWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Empty(t, r.Header.Get("Content-Type"))
		case http.MethodPost:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"test"}`, string(body))
		}
		writeData(w, http.StatusOK, nil)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "/things")
	require.NoError(t, err)

	_, err = c.Post(ctx, "/things", map[string]string{"name": "test"})
	require.NoError(t, err)
}

func TestClient_AuthorizationHeaderWhenTokenPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, nil)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.Tokens().SetAccessToken("token-123")

	_, err := c.Get(context.Background(), "/things")
	require.NoError(t, err)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeData(w, http.StatusOK, nil)
	}))
	defer server.Close()

	cfg := config.ClientConfig{BaseURL: server.URL, TimeoutMs: 50, RetryAttempts: 1, RetryDelayMs: 10}
	c := New(cfg, tokens.NewMemStore(), nil)

	_, err := c.Post(context.Background(), "/slow", map[string]string{"k": "v"})
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "Request timeout", timeoutErr.Error())
}

func TestClient_RefreshAndReissue(t *testing.T) {
	// 401 on the first attempt, refresh succeeds, the original request is
	// re-issued once with the new credential.
	var dataCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"), "refresh call suppresses auth headers")

		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-1", req.RefreshToken)

		writeData(w, http.StatusOK, map[string]string{
			"accessToken":  "new-access",
			"refreshToken": "refresh-2",
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeError(w, http.StatusUnauthorized, "Access token expired", "TOKEN_EXPIRED")
			return
		}
		writeData(w, http.StatusOK, map[string]int{"value": 42})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()
	require.NoError(t, c.Tokens().Save(ctx, tokens.Pair{AccessToken: "stale", RefreshToken: "refresh-1"}))

	env, err := c.Get(ctx, "/data")
	require.NoError(t, err)
	assert.True(t, env.Success)

	assert.Equal(t, int32(2), dataCalls.Load(), "original attempt plus one re-issue")
	assert.Equal(t, int32(1), refreshCalls.Load(), "exactly one refresh call")
	assert.Equal(t, "new-access", c.Tokens().AccessToken())
	assert.Equal(t, "refresh-2", c.Tokens().RefreshToken())
}

func TestClient_SessionExpiredWhenRefreshFails(t *testing.T) {
	// 401 on the first attempt and the refresh is rejected too: the
	// caller sees SessionExpiredError and credentials are cleared.
	var dataCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeError(w, http.StatusUnauthorized, "Refresh token expired", "REFRESH_EXPIRED")
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		writeError(w, http.StatusUnauthorized, "Access token expired", "TOKEN_EXPIRED")
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()
	require.NoError(t, c.Tokens().Save(ctx, tokens.Pair{AccessToken: "stale", RefreshToken: "dead"}))

	_, err := c.Get(ctx, "/data")
	var expired *SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, "Session expired. Please login again.", expired.Error())

	assert.Equal(t, int32(1), dataCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Empty(t, c.Tokens().AccessToken())
	assert.Empty(t, c.Tokens().RefreshToken())
}

func TestClient_RepeatedUnauthorizedIsNotLooped(t *testing.T) {
	// The refresh succeeds but the server keeps answering 401: only one
	// recovery attempt is made per logical request.
	var dataCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"accessToken": "new-access"})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		writeError(w, http.StatusUnauthorized, "Still unauthorized", "FORBIDDEN_DEVICE")
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()
	require.NoError(t, c.Tokens().Save(ctx, tokens.Pair{AccessToken: "stale", RefreshToken: "refresh-1"}))

	_, err := c.Post(ctx, "/data", map[string]string{"k": "v"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(2), dataCalls.Load(), "one original attempt, one re-issue, no loop")
}

func TestClient_APIErrorFromEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "Radius must be positive", "VALIDATION_ERROR")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Post(context.Background(), "/safe-zones", map[string]int{"radius": -1})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Radius must be positive", apiErr.Message)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.False(t, apiErr.Retryable())
}

func TestClient_APIErrorFromUnparsableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Post(context.Background(), "/data", map[string]string{"k": "v"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "request failed with status 502", apiErr.Message)
	assert.True(t, apiErr.Retryable())
}

func TestEnvelope_FailureVariantMustBeHandled(t *testing.T) {
	raw := []byte(`{"success":false,"error":{"message":"Zone not found","code":"NOT_FOUND"}}`)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	err := env.Err()
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Zone not found", apiErr.Message)

	// Decode refuses to touch Data on the failure variant
	var out map[string]any
	assert.Error(t, env.Decode(&out))
}

func TestEnvelope_SuccessDecode(t *testing.T) {
	raw := []byte(`{"success":true,"data":{"id":"zone_1","name":"Home"},"meta":{"timestamp":"2026-01-02T03:04:05Z","requestId":"req-1"}}`)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.NoError(t, env.Err())

	var zone SafeZone
	require.NoError(t, env.Decode(&zone))
	assert.Equal(t, "zone_1", zone.ID)
	assert.Equal(t, "Home", zone.Name)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "req-1", env.Meta.RequestID)
}

func TestAuth_RefreshTokenWithoutCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.Auth().RefreshToken(context.Background())
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
}
