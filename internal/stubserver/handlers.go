package stubserver

import (
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"guardian/internal/idgen"
)

// AuthHandler serves the authentication endpoints
type AuthHandler struct {
	state  *State
	logger *slog.Logger
}

// NewAuthHandler creates an auth handler over the stub state
func NewAuthHandler(state *State, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{state: state, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func sessionPayload(acct *account, sess *session) gin.H {
	return gin.H{
		"user": gin.H{
			"id":    acct.ID,
			"email": acct.Email,
			"role":  acct.Role,
		},
		"tokens": gin.H{
			"accessToken":  sess.AccessToken,
			"refreshToken": sess.RefreshToken,
		},
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required", "VALIDATION_ERROR")
		return
	}

	acct, sess, err := h.state.Register(req.Email, req.Password, req.Role)
	if err != nil {
		respondError(c, http.StatusConflict, "Email already registered", "EMAIL_TAKEN")
		return
	}
	respondData(c, http.StatusCreated, sessionPayload(acct, sess))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required", "VALIDATION_ERROR")
		return
	}

	acct, sess, err := h.state.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
		return
	}
	respondData(c, http.StatusOK, sessionPayload(acct, sess))
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Refresh token is required", "VALIDATION_ERROR")
		return
	}

	sess, err := h.state.Rotate(req.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Refresh token expired or unknown", "REFRESH_EXPIRED")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"accessToken":  sess.AccessToken,
		"refreshToken": sess.RefreshToken,
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		h.state.Logout(token)
	}
	respondData(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// GuardianHandler serves the authenticated domain endpoints
type GuardianHandler struct {
	state  *State
	logger *slog.Logger
}

// NewGuardianHandler creates the domain handler over the stub state
func NewGuardianHandler(state *State, logger *slog.Logger) *GuardianHandler {
	return &GuardianHandler{state: state, logger: logger}
}

// SendLocation handles POST /location
func (h *GuardianHandler) SendLocation(c *gin.Context) {
	var req locationRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid location payload", "VALIDATION_ERROR")
		return
	}
	req.ID = idgen.NewLocation()
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	userID := c.GetString(userIDKey)
	h.state.mu.Lock()
	h.state.locations[userID] = append(h.state.locations[userID], req)
	h.state.mu.Unlock()

	respondData(c, http.StatusCreated, req)
}

// LocationHistory handles GET /location/history
func (h *GuardianHandler) LocationHistory(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var start, end time.Time
	if raw := c.Query("startDate"); raw != "" {
		start, _ = time.Parse(time.RFC3339, raw)
	}
	if raw := c.Query("endDate"); raw != "" {
		end, _ = time.Parse(time.RFC3339, raw)
	}

	h.state.mu.Lock()
	records := h.state.locations[userID]
	result := make([]locationRecord, 0, len(records))
	for _, rec := range records {
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err == nil {
			if !start.IsZero() && ts.Before(start) {
				continue
			}
			if !end.IsZero() && ts.After(end) {
				continue
			}
		}
		result = append(result, rec)
	}
	h.state.mu.Unlock()

	respondData(c, http.StatusOK, result)
}

// CurrentLocation handles GET /location/current
func (h *GuardianHandler) CurrentLocation(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.state.mu.Lock()
	records := h.state.locations[userID]
	h.state.mu.Unlock()

	if len(records) == 0 {
		respondError(c, http.StatusNotFound, "No location reported yet", "NOT_FOUND")
		return
	}
	respondData(c, http.StatusOK, records[len(records)-1])
}

// DeleteLocation handles DELETE /location/:id
func (h *GuardianHandler) DeleteLocation(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	h.state.mu.Lock()
	records := h.state.locations[userID]
	for i, rec := range records {
		if rec.ID == id {
			h.state.locations[userID] = append(records[:i], records[i+1:]...)
			h.state.mu.Unlock()
			respondData(c, http.StatusOK, gin.H{"message": "Location deleted"})
			return
		}
	}
	h.state.mu.Unlock()
	respondError(c, http.StatusNotFound, "Location not found", "NOT_FOUND")
}

// ListSafeZones handles GET /safe-zones
func (h *GuardianHandler) ListSafeZones(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.state.mu.Lock()
	zones := append([]zoneRecord(nil), h.state.zones[userID]...)
	h.state.mu.Unlock()

	respondData(c, http.StatusOK, zones)
}

// CreateSafeZone handles POST /safe-zones
func (h *GuardianHandler) CreateSafeZone(c *gin.Context) {
	var req zoneRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid safe zone payload", "VALIDATION_ERROR")
		return
	}
	req.ID = idgen.NewSafeZone()

	userID := c.GetString(userIDKey)
	h.state.mu.Lock()
	h.state.zones[userID] = append(h.state.zones[userID], req)
	h.state.mu.Unlock()

	respondData(c, http.StatusCreated, req)
}

// UpdateSafeZone handles PUT /safe-zones/:id
func (h *GuardianHandler) UpdateSafeZone(c *gin.Context) {
	var req struct {
		Name      *string  `json:"name"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Radius    *float64 `json:"radius"`
		Type      *string  `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid safe zone payload", "VALIDATION_ERROR")
		return
	}

	userID := c.GetString(userIDKey)
	id := c.Param("id")

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	for i := range h.state.zones[userID] {
		zone := &h.state.zones[userID][i]
		if zone.ID != id {
			continue
		}
		if req.Name != nil {
			zone.Name = *req.Name
		}
		if req.Latitude != nil {
			zone.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			zone.Longitude = *req.Longitude
		}
		if req.Radius != nil {
			zone.Radius = *req.Radius
		}
		if req.Type != nil {
			zone.Type = *req.Type
		}
		respondData(c, http.StatusOK, *zone)
		return
	}
	respondError(c, http.StatusNotFound, "Safe zone not found", "NOT_FOUND")
}

// DeleteSafeZone handles DELETE /safe-zones/:id
func (h *GuardianHandler) DeleteSafeZone(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	h.state.mu.Lock()
	zones := h.state.zones[userID]
	for i, zone := range zones {
		if zone.ID == id {
			h.state.zones[userID] = append(zones[:i], zones[i+1:]...)
			h.state.mu.Unlock()
			respondData(c, http.StatusOK, gin.H{"message": "Safe zone deleted"})
			return
		}
	}
	h.state.mu.Unlock()
	respondError(c, http.StatusNotFound, "Safe zone not found", "NOT_FOUND")
}

// CheckGeofence handles GET /safe-zones/check-geofence
func (h *GuardianHandler) CheckGeofence(c *gin.Context) {
	var query struct {
		Latitude  float64 `form:"latitude" binding:"required"`
		Longitude float64 `form:"longitude" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, http.StatusBadRequest, "latitude and longitude are required", "VALIDATION_ERROR")
		return
	}

	userID := c.GetString(userIDKey)
	h.state.mu.Lock()
	zones := append([]zoneRecord(nil), h.state.zones[userID]...)
	h.state.mu.Unlock()

	for _, zone := range zones {
		if haversine(query.Latitude, query.Longitude, zone.Latitude, zone.Longitude) <= zone.Radius {
			respondData(c, http.StatusOK, gin.H{
				"insideSafeZone": true,
				"safeZone":       zone,
			})
			return
		}
	}
	respondData(c, http.StatusOK, gin.H{"insideSafeZone": false})
}

// ListContacts handles GET /emergency-contacts
func (h *GuardianHandler) ListContacts(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.state.mu.Lock()
	contacts := append([]contactRecord(nil), h.state.contacts[userID]...)
	h.state.mu.Unlock()

	respondData(c, http.StatusOK, contacts)
}

// AddContact handles POST /emergency-contacts
func (h *GuardianHandler) AddContact(c *gin.Context) {
	var req contactRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid contact payload", "VALIDATION_ERROR")
		return
	}
	req.ID = idgen.NewContact()

	userID := c.GetString(userIDKey)
	h.state.mu.Lock()
	h.state.contacts[userID] = append(h.state.contacts[userID], req)
	h.state.mu.Unlock()

	respondData(c, http.StatusCreated, req)
}

// UpdateContact handles PUT /emergency-contacts/:id
func (h *GuardianHandler) UpdateContact(c *gin.Context) {
	var req struct {
		Name         *string `json:"name"`
		Phone        *string `json:"phone"`
		Email        *string `json:"email"`
		Relationship *string `json:"relationship"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid contact payload", "VALIDATION_ERROR")
		return
	}

	userID := c.GetString(userIDKey)
	id := c.Param("id")

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	for i := range h.state.contacts[userID] {
		contact := &h.state.contacts[userID][i]
		if contact.ID != id {
			continue
		}
		if req.Name != nil {
			contact.Name = *req.Name
		}
		if req.Phone != nil {
			contact.Phone = *req.Phone
		}
		if req.Email != nil {
			contact.Email = *req.Email
		}
		if req.Relationship != nil {
			contact.Relationship = *req.Relationship
		}
		respondData(c, http.StatusOK, *contact)
		return
	}
	respondError(c, http.StatusNotFound, "Contact not found", "NOT_FOUND")
}

// DeleteContact handles DELETE /emergency-contacts/:id
func (h *GuardianHandler) DeleteContact(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	h.state.mu.Lock()
	contacts := h.state.contacts[userID]
	for i, contact := range contacts {
		if contact.ID == id {
			h.state.contacts[userID] = append(contacts[:i], contacts[i+1:]...)
			h.state.mu.Unlock()
			respondData(c, http.StatusOK, gin.H{"message": "Contact deleted"})
			return
		}
	}
	h.state.mu.Unlock()
	respondError(c, http.StatusNotFound, "Contact not found", "NOT_FOUND")
}

// TriggerAlert handles POST /emergency-contacts/alert. The server
// attaches the last known location snapshot.
func (h *GuardianHandler) TriggerAlert(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.state.mu.Lock()
	var location *locationRecord
	if records := h.state.locations[userID]; len(records) > 0 {
		last := records[len(records)-1]
		location = &last
	}
	notified := len(h.state.contacts[userID])
	h.state.mu.Unlock()

	respondData(c, http.StatusOK, gin.H{
		"id":          idgen.New(),
		"triggeredAt": time.Now().UTC().Format(time.RFC3339),
		"location":    location,
		"notified":    notified,
	})
}

// SyncActions handles POST /sync/actions
func (h *GuardianHandler) SyncActions(c *gin.Context) {
	var req struct {
		Actions []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"actions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid sync payload", "VALIDATION_ERROR")
		return
	}
	respondData(c, http.StatusOK, gin.H{"syncedCount": len(req.Actions)})
}

// HealthHandler serves GET /health
type HealthHandler struct{}

// NewHealthHandler creates a health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// GetHealth returns the health status of the stub
func (h *HealthHandler) GetHealth(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "guardian-stub",
		"version": "1.0.0",
	})
}

// haversine returns the great-circle distance between two points in meters
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
