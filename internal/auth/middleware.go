package auth

import (
	"context"
	"net/http"
	"net/url"
)

// TokenCookie is the name of the session cookie.
const TokenCookie = "token"

// SignInPath is where RequireSignIn sends visitors without a session.
const SignInPath = "/sign-in"

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const identityKey contextKey = "identity"

// Allower decides whether a signed-in user may change the catalog.
// *access.Gate implements it.
type Allower interface {
	Allows(userID, email string) bool
}

// RequireAuth rejects API requests without a valid session with 401 JSON.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"error":"unauthorized","message":"Sign in required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSignIn redirects page requests without a valid session to the
// sign-in page, remembering where the visitor was going.
func RequireSignIn(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromRequest(r, tokens)
			if err != nil {
				target := SignInPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid session exists and lets
// every request through.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := identityFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllowed must run after RequireAuth or RequireSignIn. Users not on
// the allow-list are handed to denied, which renders the unauthorized
// state. Being denied is an expected outcome and is not logged as an error.
func RequireAllowed(gate Allower, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || !gate.Allows(id.UserID, id.Email) {
				denied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the signed-in user, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

func identityFromRequest(r *http.Request, tokens *TokenService) (Identity, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return Identity{}, err
	}
	return tokens.Validate(cookie.Value)
}
