package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// LocationService groups the location reporting endpoints
type LocationService struct {
	c *Client
}

// Location returns the location reporting facade
func (c *Client) Location() *LocationService {
	return &LocationService{c: c}
}

// LocationPoint is a reported device location
type LocationPoint struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Context   string  `json:"context,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// Send reports the device position. The timestamp is generated on the
// client so reports queued offline keep their original capture time.
// locationContext may be empty.
func (s *LocationService) Send(ctx context.Context, lat, lng, accuracy float64, locationContext string) (*LocationPoint, error) {
	body := struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Accuracy  float64 `json:"accuracy"`
		Context   string  `json:"context,omitempty"`
		Timestamp string  `json:"timestamp"`
	}{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		Context:   locationContext,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	env, err := s.c.do(ctx, http.MethodPost, "/location", body, false)
	if err != nil {
		return nil, err
	}
	var point LocationPoint
	if err := env.Decode(&point); err != nil {
		return nil, err
	}
	return &point, nil
}

// History lists reported locations. Date bounds are appended only when
// supplied (zero time means unbounded).
func (s *LocationService) History(ctx context.Context, startDate, endDate time.Time) ([]LocationPoint, error) {
	path := "/location/history"
	query := url.Values{}
	if !startDate.IsZero() {
		query.Set("startDate", startDate.UTC().Format(time.RFC3339))
	}
	if !endDate.IsZero() {
		query.Set("endDate", endDate.UTC().Format(time.RFC3339))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	env, err := s.c.doWithRetry(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	var points []LocationPoint
	if err := env.Decode(&points); err != nil {
		return nil, err
	}
	return points, nil
}

// Current returns the most recent reported location
func (s *LocationService) Current(ctx context.Context) (*LocationPoint, error) {
	env, err := s.c.doWithRetry(ctx, http.MethodGet, "/location/current", nil, false)
	if err != nil {
		return nil, err
	}
	var point LocationPoint
	if err := env.Decode(&point); err != nil {
		return nil, err
	}
	return &point, nil
}

// Delete removes a reported location
func (s *LocationService) Delete(ctx context.Context, locationID string) error {
	env, err := s.c.do(ctx, http.MethodDelete, "/location/"+locationID, nil, false)
	if err != nil {
		return err
	}
	return env.Err()
}
