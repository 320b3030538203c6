package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SafeZoneService groups the safe zone endpoints
type SafeZoneService struct {
	c *Client
}

// SafeZones returns the safe zone facade
func (c *Client) SafeZones() *SafeZoneService {
	return &SafeZoneService{c: c}
}

// SafeZone is a geofenced area (home, school, ...)
type SafeZone struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"` // meters
	Type      string  `json:"type"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// SafeZoneUpdate carries a partial update; nil fields are left unchanged
type SafeZoneUpdate struct {
	Name      *string  `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Radius    *float64 `json:"radius,omitempty"`
	Type      *string  `json:"type,omitempty"`
}

// GeofenceStatus is the containment answer for a position
type GeofenceStatus struct {
	InsideSafeZone bool      `json:"insideSafeZone"`
	SafeZone       *SafeZone `json:"safeZone,omitempty"`
}

// List returns all safe zones
func (s *SafeZoneService) List(ctx context.Context) ([]SafeZone, error) {
	env, err := s.c.doWithRetry(ctx, http.MethodGet, "/safe-zones", nil, false)
	if err != nil {
		return nil, err
	}
	var zones []SafeZone
	if err := env.Decode(&zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// Create adds a new safe zone
func (s *SafeZoneService) Create(ctx context.Context, name string, lat, lng, radius float64, zoneType string) (*SafeZone, error) {
	body := struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Radius    float64 `json:"radius"`
		Type      string  `json:"type"`
	}{Name: name, Latitude: lat, Longitude: lng, Radius: radius, Type: zoneType}

	env, err := s.c.do(ctx, http.MethodPost, "/safe-zones", body, false)
	if err != nil {
		return nil, err
	}
	var zone SafeZone
	if err := env.Decode(&zone); err != nil {
		return nil, err
	}
	return &zone, nil
}

// Update applies a partial update to a safe zone
func (s *SafeZoneService) Update(ctx context.Context, id string, update SafeZoneUpdate) (*SafeZone, error) {
	env, err := s.c.do(ctx, http.MethodPut, "/safe-zones/"+id, update, false)
	if err != nil {
		return nil, err
	}
	var zone SafeZone
	if err := env.Decode(&zone); err != nil {
		return nil, err
	}
	return &zone, nil
}

// Delete removes a safe zone
func (s *SafeZoneService) Delete(ctx context.Context, id string) error {
	env, err := s.c.do(ctx, http.MethodDelete, "/safe-zones/"+id, nil, false)
	if err != nil {
		return err
	}
	return env.Err()
}

// CheckGeofence reports whether the position falls inside any safe zone
func (s *SafeZoneService) CheckGeofence(ctx context.Context, lat, lng float64) (*GeofenceStatus, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))

	env, err := s.c.doWithRetry(ctx, http.MethodGet, "/safe-zones/check-geofence?"+query.Encode(), nil, false)
	if err != nil {
		return nil, err
	}
	var status GeofenceStatus
	if err := env.Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
