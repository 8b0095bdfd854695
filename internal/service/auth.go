package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/linkshelf/internal/auth"
)

// AuthService turns a GitHub sign-in into a linkshelf session and answers
// whether a session may edit the catalog.
type AuthService struct {
	tokens *auth.TokenService
	gate   auth.Allower
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(tokens *auth.TokenService, gate auth.Allower, logger *slog.Logger) *AuthService {
	return &AuthService{tokens: tokens, gate: gate, logger: logger}
}

// Profile is what /api/me reports about the signed-in user.
type Profile struct {
	auth.Identity
	Allowed bool `json:"allowed"`
}

// AuthResult is returned after a successful sign-in.
type AuthResult struct {
	Profile Profile
	Token   string
}

// SignInGitHub issues a session token for a GitHub user. Users outside the
// allow-list still get a session: they may browse and will see the
// unauthorized state on the admin area.
func (s *AuthService) SignInGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	id := ghUser.Identity()
	token, err := s.tokens.Generate(id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", id.UserID, err)
	}

	profile := s.Profile(id)
	s.logger.InfoContext(ctx, "user signed in via GitHub",
		slog.String("userID", id.UserID),
		slog.String("login", id.Login),
		slog.Bool("allowed", profile.Allowed),
	)
	return &AuthResult{Profile: profile, Token: token}, nil
}

// Profile reports id together with its allow-list decision.
func (s *AuthService) Profile(id auth.Identity) Profile {
	return Profile{Identity: id, Allowed: s.gate.Allows(id.UserID, id.Email)}
}

// ValidateToken returns the identity carried by a session token.
func (s *AuthService) ValidateToken(tokenStr string) (auth.Identity, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("service/auth: %w", err)
	}
	return id, nil
}

// SessionTTL is how long an issued session token stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}
