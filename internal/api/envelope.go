package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the uniform wrapper every Guardian endpoint returns.
// Exactly one of the two shapes is populated: Data/Meta when Success is
// true, Error when it is false. Data is kept raw so facades decode into
// their own types.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// Meta carries server-side response metadata
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// ErrorDetail is the failure variant payload
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Err returns the failure variant as an error, or nil when the envelope
// is the success variant. Callers must check it before touching Data.
func (e *Envelope) Err() error {
	if e.Success {
		return nil
	}
	msg := "request failed"
	code := ""
	if e.Error != nil {
		if e.Error.Message != "" {
			msg = e.Error.Message
		}
		code = e.Error.Code
	}
	return &APIError{Message: msg, Code: code}
}

// Decode unmarshals the success payload into v. It refuses to decode a
// failure envelope and returns its Err instead.
func (e *Envelope) Decode(v any) error {
	if err := e.Err(); err != nil {
		return err
	}
	if v == nil || len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
