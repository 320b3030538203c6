package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/stubserver"
	"guardian/internal/tokens"
)

func startStub(t *testing.T) (*Client, *stubserver.State) {
	t.Helper()
	state := stubserver.NewState()
	router := stubserver.NewRouter(stubserver.RouterConfig{State: state})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return newTestClient(t, server.URL), state
}

func TestIntegration_FullFlow(t *testing.T) {
	c, _ := startStub(t)
	ctx := context.Background()

	health, err := c.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	user, err := c.Auth().Register(ctx, "ada@example.com", "secret", "guardian")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, c.Tokens().AccessToken(), "login persists issued tokens")
	assert.NotEmpty(t, c.Tokens().RefreshToken())

	point, err := c.Location().Send(ctx, 52.3702, 4.8952, 12.5, "walking")
	require.NoError(t, err)
	assert.NotEmpty(t, point.ID)
	assert.NotEmpty(t, point.Timestamp)

	current, err := c.Location().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, point.ID, current.ID)

	history, err := c.Location().History(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	zone, err := c.SafeZones().Create(ctx, "Home", 52.3702, 4.8952, 250, "home")
	require.NoError(t, err)
	assert.Equal(t, "Home", zone.Name)

	inside, err := c.SafeZones().CheckGeofence(ctx, 52.3703, 4.8953)
	require.NoError(t, err)
	assert.True(t, inside.InsideSafeZone)
	require.NotNil(t, inside.SafeZone)
	assert.Equal(t, zone.ID, inside.SafeZone.ID)

	outside, err := c.SafeZones().CheckGeofence(ctx, 48.8566, 2.3522)
	require.NoError(t, err)
	assert.False(t, outside.InsideSafeZone)
	assert.Nil(t, outside.SafeZone)

	newName := "Home base"
	updated, err := c.SafeZones().Update(ctx, zone.ID, SafeZoneUpdate{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Home base", updated.Name)
	assert.Equal(t, zone.Radius, updated.Radius, "unset fields stay unchanged")

	contact, err := c.Contacts().Add(ctx, "Grace", "+31612345678", "grace@example.com", "parent")
	require.NoError(t, err)

	alert, err := c.Contacts().TriggerAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, alert.Notified)
	require.NotNil(t, alert.Location, "alert carries the last known location")
	assert.Equal(t, point.ID, alert.Location.ID)

	require.NoError(t, c.Contacts().Delete(ctx, contact.ID))
	contacts, err := c.Contacts().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	actions := []Action{
		NewAction("location.report", json.RawMessage(`{"latitude":52.37,"longitude":4.89}`)),
		NewAction("safezone.exit", nil),
	}
	result, err := c.Sync().Actions(ctx, actions)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SyncedCount)

	require.NoError(t, c.Auth().Logout(ctx))
	assert.Empty(t, c.Tokens().AccessToken())
	assert.Empty(t, c.Tokens().RefreshToken())
}

func TestIntegration_ExpiredAccessTokenIsRecovered(t *testing.T) {
	c, state := startStub(t)
	ctx := context.Background()

	_, err := c.Auth().Register(ctx, "bob@example.com", "secret", "")
	require.NoError(t, err)
	staleAccess := c.Tokens().AccessToken()

	_, err = c.Location().Send(ctx, 1, 2, 3, "")
	require.NoError(t, err)

	// Invalidate all access tokens; refresh tokens stay valid
	state.ExpireAccessTokens()

	current, err := c.Location().Current(ctx)
	require.NoError(t, err, "401 must be recovered transparently via refresh")
	assert.NotEmpty(t, current.ID)
	assert.NotEqual(t, staleAccess, c.Tokens().AccessToken(), "recovered request runs on a fresh credential")
}

func TestIntegration_RevokedSessionExpires(t *testing.T) {
	c, state := startStub(t)
	ctx := context.Background()

	_, err := c.Auth().Register(ctx, "eve@example.com", "secret", "")
	require.NoError(t, err)

	state.RevokeAll()

	_, err = c.SafeZones().List(ctx)
	var expired *SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Empty(t, c.Tokens().AccessToken())
	assert.Empty(t, c.Tokens().RefreshToken())
}

func TestIntegration_LoginAfterRegister(t *testing.T) {
	c, _ := startStub(t)
	ctx := context.Background()

	_, err := c.Auth().Register(ctx, "carol@example.com", "hunter2", "")
	require.NoError(t, err)
	require.NoError(t, c.Auth().Logout(ctx))

	user, err := c.Auth().Login(ctx, "carol@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.NotEmpty(t, c.Tokens().AccessToken())

	_, err = c.Auth().Login(ctx, "carol@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr, "skip-auth 401 is a plain API error, not session expiry")
	assert.Equal(t, 401, apiErr.Status)
}

func TestIntegration_ExplicitRefreshRotatesTokens(t *testing.T) {
	c, _ := startStub(t)
	ctx := context.Background()

	_, err := c.Auth().Register(ctx, "dan@example.com", "secret", "")
	require.NoError(t, err)
	oldAccess := c.Tokens().AccessToken()
	oldRefresh := c.Tokens().RefreshToken()

	require.NoError(t, c.Auth().RefreshToken(ctx))
	assert.NotEqual(t, oldAccess, c.Tokens().AccessToken())
	assert.NotEqual(t, oldRefresh, c.Tokens().RefreshToken())

	// The stub invalidates a redeemed refresh token
	require.NoError(t, c.Tokens().Save(ctx, tokens.Pair{AccessToken: oldAccess, RefreshToken: oldRefresh}))
	err = c.Auth().RefreshToken(ctx)
	assert.ErrorIs(t, err, ErrRefreshFailed)
}
