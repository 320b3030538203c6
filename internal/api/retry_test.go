package api

import (
	"context"
	"errors"
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

// doerFunc adapts a function to the Doer interface
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestRetry_TransientFailuresThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeError(w, http.StatusInternalServerError, "Temporary failure", "INTERNAL_ERROR")
			return
		}
		writeData(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))
	defer server.Close()

	cfg := config.ClientConfig{BaseURL: server.URL, TimeoutMs: 2000, RetryAttempts: 3, RetryDelayMs: 100}
	c := New(cfg, tokens.NewMemStore(), nil)

	start := time.Now()
	env, err := c.Get(context.Background(), "/flaky")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, int32(3), calls.Load())
	// Backoff schedule is contractual: 100ms + 200ms before the third attempt
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestRetry_ClientErrorPropagatesImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusNotFound, "Zone not found", "NOT_FOUND")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Get(context.Background(), "/safe-zones/zone_missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not consume retry attempts")
}

func TestRetry_AttemptBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusServiceUnavailable, "Down for maintenance", "UNAVAILABLE")
	}))
	defer server.Close()

	cfg := config.ClientConfig{BaseURL: server.URL, TimeoutMs: 2000, RetryAttempts: 2, RetryDelayMs: 10}
	c := New(cfg, tokens.NewMemStore(), nil)

	_, err := c.Get(context.Background(), "/down")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status, "last error returned unchanged")
	assert.Equal(t, int32(2), calls.Load(), "never exceeds the attempt budget")
}

func TestRetry_NetworkErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "http://guardian.invalid")
	c.transport.client = doerFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})

	_, err := c.Get(context.Background(), "/anything")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, int32(3), calls.Load(), "all attempts consumed on network failure")
}

func TestRetry_BackoffHonorsCancellation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "http://guardian.invalid")
	c.transport.client = doerFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})
	c.retryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "/anything")
		done <- err
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("backoff wait ignored cancellation")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &NetworkError{Err: errors.New("reset")}, true},
		{"timeout", &TimeoutError{}, true},
		{"server error", &APIError{Status: 500, Message: "boom"}, true},
		{"client error", &APIError{Status: 404, Message: "missing"}, false},
		{"session expired", &SessionExpiredError{}, false},
		{"plain error", errors.New("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}
