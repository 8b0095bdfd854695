package service

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/linkshelf/internal/auth"
)

type allowList map[string]bool

func (a allowList) Allows(userID, email string) bool { return a[userID] || a[email] }

func TestAuthService_SignInGitHub(t *testing.T) {
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewAuthService(tokens, allowList{"me@example.com": true}, quietLogger())

	res, err := svc.SignInGitHub(context.Background(), &auth.GitHubUser{ID: 42, Login: "me", Email: "me@example.com"})
	if err != nil {
		t.Fatalf("SignInGitHub() error = %v", err)
	}
	if !res.Profile.Allowed {
		t.Error("user on the allow-list by email should be allowed")
	}

	id, err := svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if id.UserID != "42" || id.Email != "me@example.com" {
		t.Errorf("ValidateToken() = %+v", id)
	}

	stranger, err := svc.SignInGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "stranger"})
	if err != nil {
		t.Fatalf("SignInGitHub() error = %v", err)
	}
	if stranger.Profile.Allowed {
		t.Error("users off the list still sign in but are not allowed")
	}

	if _, err := svc.SignInGitHub(context.Background(), nil); err == nil {
		t.Error("SignInGitHub(nil) should fail")
	}
	if _, err := svc.ValidateToken("garbage"); err == nil {
		t.Error("ValidateToken(garbage) should fail")
	}
}
