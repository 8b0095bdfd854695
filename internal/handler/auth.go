package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/service"
)

const (
	stateCookie = "oauth_state"
	nextCookie  = "oauth_next"
)

// GitHubAuthenticator is the part of auth.GitHubProvider the handler needs.
// Tests swap in a fake so no request ever reaches GitHub.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages the GitHub OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → report the signed-in user and whether they may edit
//
// There is no users table: the session token carries the whole identity,
// and the allow-list decides what that identity may do.
type AuthHandler struct {
	github        GitHubAuthenticator
	sessions      *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies marks every cookie
// Secure and should be on whenever the site is served over HTTPS.
func NewAuthHandler(github GitHubAuthenticator, sessions *service.AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:        github,
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login?next=/admin
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	h.setShortCookie(w, stateCookie, state)

	if next := r.URL.Query().Get("next"); isLocalPath(next) {
		h.setShortCookie(w, nextCookie, next)
	}

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Issue a JWT session token stored in an HttpOnly cookie
//  4. Redirect to where the visitor was going (default: the gallery)
//
// Users who are not on the allow-list still get a session. The admin area
// shows them the unauthorized state instead of a sign-in loop.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != state.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	// The state cookie is single-use.
	h.clearCookie(w, stateCookie)

	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil && isLocalPath(c.Value) {
		next = c.Value
	}
	h.clearCookie(w, nextCookie)

	// The user pressed "Cancel" on GitHub.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Issue JWT cookie ---
	res, err := h.sessions.SignInGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// HttpOnly = JavaScript cannot read this cookie (XSS protection).
	// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.sessions.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 4: Redirect ---
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Logout is a state-changing operation, so it is POST only: a GET would let
// any page log the user out with an <img> tag. The token itself stays valid
// until it expires, but without the cookie the browser can't send it.
//
// Browsers submitting the sign-out form are sent back to the gallery; API
// clients get JSON.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.TokenCookie)

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Signed out"})
}

// HandleMe returns the signed-in user's identity and allow-list decision.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware puts the identity in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Sign in required"})
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Profile(id))
}

// setShortCookie stores a value for the 10 minutes the user has to approve
// the app on GitHub.
func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// isLocalPath accepts only same-site paths, so ?next= cannot be used as an
// open redirect ("//evil.example" is a protocol-relative URL).
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
