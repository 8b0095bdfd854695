// Package auth signs users in with GitHub and keeps them signed in with a
// JWT session cookie.
//
// SIGN-IN FLOW:
//  1. Visitor hits /auth/github/login and is redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code
//  3. The server exchanges the code for the GitHub profile and primary email
//  4. The server issues a JWT carrying that identity in an HttpOnly cookie
//  5. Middleware validates the cookie on later requests and puts the
//     Identity in the request context
//
// linkshelf keeps no users table: everything the allow-list needs (GitHub
// user id and primary email) travels inside the signed token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "linkshelf"

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 16

// Identity is the signed-in user as seen by the rest of the application.
type Identity struct {
	UserID string `json:"userId"` // GitHub numeric user id, as a string
	Login  string `json:"login"`
	Email  string `json:"email,omitempty"` // primary email, "" if GitHub hid it
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens, and the
// lifetime of the sessions it issues.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and session
// lifetime.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long an issued session stays valid.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// claims is the JWT payload. "sub" carries the user id; login and email
// ride along so no lookup is needed per request.
type claims struct {
	Login string `json:"login,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates a signed session token for id valid for the service TTL.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration creates a token with a custom lifetime. A negative
// duration yields an already-expired token, which tests use.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: identity has no user id")
	}
	now := time.Now()

	c := claims{
		Login: id.Login,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the identity it carries.
//
// SECURITY: the algorithm is pinned to HS256 so a token claiming "none" or
// an asymmetric algorithm is rejected before the signature is checked.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.New("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, errors.New("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, Login: c.Login, Email: c.Email}, nil
}
