package tokens

import (
	"context"
	"log/slog"
	"sync"

	"guardian/internal/logging"
)

// Pair is the access/refresh credential pair. Either field may be
// empty; access can exist without refresh (e.g. mid-refresh).
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshFunc performs the single network call that exchanges a refresh
// credential for a new pair. Auth headers are suppressed by the caller
// wiring this in. A returned pair with an empty RefreshToken keeps the
// existing refresh credential.
type RefreshFunc func(ctx context.Context, refreshToken string) (Pair, error)

// Manager is the single source of truth for the credential pair. It
// mediates all persistence and all refresh attempts. One instance per
// client; never shared as a global.
type Manager struct {
	store   Store
	refresh RefreshFunc
	logger  *slog.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	inflight     *refreshCall
}

// refreshCall is the shared outcome of one in-flight refresh. Waiters
// block on done and then read ok.
type refreshCall struct {
	done chan struct{}
	ok   bool
}

// NewManager creates a credential manager over the given store. The
// refresh function may be nil for read-only uses; Refresh then always
// reports failure.
func NewManager(store Store, refresh RefreshFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		store:   store,
		refresh: refresh,
		logger:  logger,
	}
}

// Load populates in-memory state from the store. Read failures are
// tolerated: the corresponding credential stays absent.
func (m *Manager) Load(ctx context.Context) {
	access, err := m.store.Get(ctx, AccessTokenKey)
	if err != nil {
		m.logger.Debug("Failed to load access token", "component", "tokens", "error", err)
	}
	refresh, err := m.store.Get(ctx, RefreshTokenKey)
	if err != nil {
		m.logger.Debug("Failed to load refresh token", "component", "tokens", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if access != "" {
		m.accessToken = access
	}
	if refresh != "" {
		m.refreshToken = refresh
	}
}

// Save persists the pair to the store, then updates in-memory state.
// A store failure returns StorageError and leaves memory unchanged.
// An empty field deletes the corresponding key.
func (m *Manager) Save(ctx context.Context, pair Pair) error {
	if err := m.write(ctx, AccessTokenKey, pair.AccessToken); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	if err := m.write(ctx, RefreshTokenKey, pair.RefreshToken); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	m.mu.Lock()
	m.accessToken = pair.AccessToken
	m.refreshToken = pair.RefreshToken
	m.mu.Unlock()
	return nil
}

func (m *Manager) write(ctx context.Context, key, value string) error {
	if value == "" {
		return m.store.Delete(ctx, key)
	}
	return m.store.Set(ctx, key, value)
}

// Clear deletes both credentials from the store and empties in-memory
// state. Idempotent. Memory is emptied even when the store delete
// fails, so a cleared session is always observable.
func (m *Manager) Clear(ctx context.Context) error {
	errAccess := m.store.Delete(ctx, AccessTokenKey)
	errRefresh := m.store.Delete(ctx, RefreshTokenKey)

	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.mu.Unlock()

	if errAccess != nil {
		return &StorageError{Op: "clear", Err: errAccess}
	}
	if errRefresh != nil {
		return &StorageError{Op: "clear", Err: errRefresh}
	}
	return nil
}

// SetAccessToken overrides the in-memory access credential without
// touching the store. Used for non-persisted session overrides.
func (m *Manager) SetAccessToken(token string) {
	m.mu.Lock()
	m.accessToken = token
	m.mu.Unlock()
}

// ClearAccessToken drops the in-memory access credential only
func (m *Manager) ClearAccessToken() {
	m.mu.Lock()
	m.accessToken = ""
	m.mu.Unlock()
}

// AccessToken returns the current access credential, or empty
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// RefreshToken returns the current refresh credential, or empty
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// Refresh obtains a new access credential using the stored refresh
// credential. Single-flight: concurrent callers during one expired
// window share exactly one network call and receive the same outcome.
// Returns false without a network call when no refresh credential
// exists; on failure nothing is persisted and state is unchanged.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		<-call.done
		return call.ok
	}
	refreshToken := m.refreshToken
	if refreshToken == "" || m.refresh == nil {
		m.mu.Unlock()
		return false
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	call.ok = m.runRefresh(ctx, refreshToken)

	// Settle the shared outcome, then allow a fresh refresh to start.
	close(call.done)
	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()

	return call.ok
}

func (m *Manager) runRefresh(ctx context.Context, refreshToken string) bool {
	pair, err := m.refresh(ctx, refreshToken)
	if err != nil {
		m.logger.Debug("Token refresh failed", "component", "tokens", "error", err)
		return false
	}
	if pair.AccessToken == "" {
		m.logger.Debug("Token refresh returned no access token", "component", "tokens")
		return false
	}
	// Keep the existing refresh credential unless the server rotated it
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := m.Save(ctx, pair); err != nil {
		m.logger.Warn("Failed to persist refreshed tokens", "component", "tokens", "error", err)
		return false
	}
	return true
}
