package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Doer abstracts the underlying HTTP client so tests can substitute a
// failing transport without a listener.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// transport wraps the platform HTTP call with a per-attempt deadline.
// Every attempt gets its own full timeout budget; retries never extend
// or reuse a previous attempt's deadline.
type transport struct {
	client  Doer
	timeout time.Duration
}

// send performs one HTTP exchange and returns the status code and raw
// body. Failures are classified: deadline expiry surfaces as
// TimeoutError, any other transport failure as NetworkError.
func (t *transport) send(ctx context.Context, method, url string, headers http.Header, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, &NetworkError{Err: err}
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, nil, &TimeoutError{}
		}
		return 0, nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, nil, &TimeoutError{}
		}
		return 0, nil, &NetworkError{Err: err}
	}

	return resp.StatusCode, respBody, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
