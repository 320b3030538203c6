package api

import (
	"context"
	"time"
)

// doWithRetry wraps do with bounded retry for transient failures.
// Non-retryable errors are returned immediately without consuming
// further attempts; the backoff before attempt i+1 is
// retryDelay * 2^i. After the last failed attempt the most recent
// error is returned unchanged.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body any, skipAuth bool) (*Envelope, error) {
	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * (1 << (attempt - 1))
			c.logger.Debug("Retrying request",
				"component", "api",
				"method", method,
				"path", path,
				"attempt", attempt+1,
				"delay", delay.String(),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		env, err := c.do(ctx, method, path, body, skipAuth)
		if err == nil {
			return env, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// sleep waits for d without blocking other work, honoring cancellation
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
