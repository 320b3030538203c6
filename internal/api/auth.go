package api

import (
	"context"
	"net/http"

	"guardian/internal/tokens"
)

// AuthService groups the authentication endpoints
type AuthService struct {
	c *Client
}

// Auth returns the authentication facade
func (c *Client) Auth() *AuthService {
	return &AuthService{c: c}
}

// User represents an authenticated account
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// tokenPayload is the wire shape of an issued credential pair
type tokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type authResponse struct {
	User   User         `json:"user"`
	Tokens tokenPayload `json:"tokens"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register creates a new account. On success the issued tokens are
// persisted before the user is returned. role may be empty.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (*User, error) {
	body := credentialsRequest{Email: email, Password: password, Role: role}
	env, err := s.c.do(ctx, http.MethodPost, "/auth/register", body, true)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, env)
}

// Login authenticates an existing account and persists the issued tokens
func (s *AuthService) Login(ctx context.Context, email, password string) (*User, error) {
	body := credentialsRequest{Email: email, Password: password}
	env, err := s.c.do(ctx, http.MethodPost, "/auth/login", body, true)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, env)
}

func (s *AuthService) adopt(ctx context.Context, env *Envelope) (*User, error) {
	var result authResponse
	if err := env.Decode(&result); err != nil {
		return nil, err
	}
	pair := tokens.Pair{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}
	if err := s.c.tokens.Save(ctx, pair); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Logout notifies the server, then clears credentials regardless of the
// response outcome.
func (s *AuthService) Logout(ctx context.Context) error {
	_, reqErr := s.c.do(ctx, http.MethodPost, "/auth/logout", nil, false)
	if err := s.c.tokens.Clear(ctx); err != nil {
		s.c.logger.Warn("Failed to clear credentials on logout",
			"component", "api", "error", err)
	}
	if reqErr != nil {
		s.c.logger.Debug("Logout request failed",
			"component", "api", "error", reqErr)
	}
	return nil
}

// RefreshToken explicitly refreshes the access credential. Fails fast
// with ErrNoRefreshToken when there is nothing to redeem.
func (s *AuthService) RefreshToken(ctx context.Context) error {
	if s.c.tokens.RefreshToken() == "" {
		return ErrNoRefreshToken
	}
	if !s.c.tokens.Refresh(ctx) {
		return ErrRefreshFailed
	}
	return nil
}
