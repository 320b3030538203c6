package stubserver

import (
	"errors"
	"sync"

	"guardian/internal/idgen"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownRefresh     = errors.New("unknown refresh token")
)

// account is a registered stub user
type account struct {
	ID       string
	Email    string
	Role     string
	Password string
}

// session tracks one issued credential pair
type session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// locationRecord mirrors the location wire shape
type locationRecord struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Context   string  `json:"context,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// zoneRecord mirrors the safe zone wire shape
type zoneRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Type      string  `json:"type"`
}

// contactRecord mirrors the emergency contact wire shape
type contactRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// State is the stub's in-memory backing store. One instance per server;
// all access goes through the mutex.
type State struct {
	mu        sync.Mutex
	accounts  map[string]*account // by email
	byAccess  map[string]*session
	byRefresh map[string]*session
	locations map[string][]locationRecord // by user ID, append order
	zones     map[string][]zoneRecord
	contacts  map[string][]contactRecord
}

// NewState creates empty stub state
func NewState() *State {
	return &State{
		accounts:  make(map[string]*account),
		byAccess:  make(map[string]*session),
		byRefresh: make(map[string]*session),
		locations: make(map[string][]locationRecord),
		zones:     make(map[string][]zoneRecord),
		contacts:  make(map[string][]contactRecord),
	}
}

// Register creates an account and issues a credential pair
func (s *State) Register(email, password, role string) (*account, *session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		return nil, nil, ErrEmailTaken
	}
	if role == "" {
		role = "guardian"
	}
	acct := &account{
		ID:       idgen.NewUser(),
		Email:    email,
		Role:     role,
		Password: password,
	}
	s.accounts[email] = acct
	return acct, s.issueLocked(acct.ID), nil
}

// Login validates credentials and issues a fresh pair
func (s *State) Login(email, password string) (*account, *session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists := s.accounts[email]
	if !exists || acct.Password != password {
		return nil, nil, ErrInvalidCredentials
	}
	return acct, s.issueLocked(acct.ID), nil
}

// Rotate exchanges a refresh token for a new pair, invalidating the old
func (s *State) Rotate(refreshToken string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.byRefresh[refreshToken]
	if !exists {
		return nil, ErrUnknownRefresh
	}
	delete(s.byAccess, old.AccessToken)
	delete(s.byRefresh, old.RefreshToken)
	return s.issueLocked(old.UserID), nil
}

// Logout revokes the session owning the access token. Idempotent.
func (s *State) Logout(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.byAccess[accessToken]; exists {
		delete(s.byAccess, sess.AccessToken)
		delete(s.byRefresh, sess.RefreshToken)
	}
}

// Authenticate resolves an access token to a user ID
func (s *State) Authenticate(accessToken string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.byAccess[accessToken]
	if !exists {
		return "", false
	}
	return sess.UserID, true
}

// ExpireAccessTokens revokes all access tokens while keeping refresh
// tokens valid. Test hook simulating access-token expiry.
func (s *State) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token := range s.byAccess {
		delete(s.byAccess, token)
	}
}

// RevokeAll drops every session, refresh tokens included
func (s *State) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byAccess = make(map[string]*session)
	s.byRefresh = make(map[string]*session)
}

func (s *State) issueLocked(userID string) *session {
	sess := &session{
		UserID:       userID,
		AccessToken:  idgen.New(),
		RefreshToken: idgen.New(),
	}
	s.byAccess[sess.AccessToken] = sess
	s.byRefresh[sess.RefreshToken] = sess
	return sess
}
