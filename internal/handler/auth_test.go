package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/handler"
	"github.com/sakif/linkshelf/internal/service"
)

// fakeGitHub stands in for auth.GitHubProvider.
type fakeGitHub struct {
	user    *auth.GitHubUser
	err     error
	gotCode string
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.gotCode = code
	return f.user, f.err
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newAuthHandler(t *testing.T, gh *fakeGitHub) (*handler.AuthHandler, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return handler.NewAuthHandler(gh, env.sessions, true, logger), env
}

func TestAuthHandler_Login(t *testing.T) {
	h, _ := newAuthHandler(t, &fakeGitHub{})

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login?next=/admin", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := cookieNamed(rr, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.True(t, state.Secure)
	assert.Contains(t, rr.Header().Get("Location"), "state="+state.Value)

	next := cookieNamed(rr, "oauth_next")
	require.NotNil(t, next)
	assert.Equal(t, "/admin", next.Value)

	t.Run("external next is ignored", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login?next=//evil.example", nil))
		assert.Nil(t, cookieNamed(rr, "oauth_next"))
	})
}

func callbackRequest(target, state string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: state})
	}
	return req
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Run("success issues a session", func(t *testing.T) {
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 1, Login: "owner", Email: "owner@example.com"}}
		h, env := newAuthHandler(t, gh)

		req := callbackRequest("/auth/github/callback?code=abc&state=s1", "s1")
		req.AddCookie(&http.Cookie{Name: "oauth_next", Value: "/admin"})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/admin", rr.Header().Get("Location"))
		assert.Equal(t, "abc", gh.gotCode)

		token := cookieNamed(rr, auth.TokenCookie)
		require.NotNil(t, token)
		assert.True(t, token.HttpOnly)
		assert.Equal(t, 3600, token.MaxAge)

		id, err := env.tokens.Validate(token.Value)
		require.NoError(t, err)
		assert.Equal(t, "1", id.UserID)
		assert.Equal(t, "owner@example.com", id.Email)

		assert.Equal(t, -1, cookieNamed(rr, "oauth_state").MaxAge, "state cookie is single-use")
	})

	t.Run("missing state cookie", func(t *testing.T) {
		h, _ := newAuthHandler(t, &fakeGitHub{})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, callbackRequest("/auth/github/callback?code=abc&state=s1", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		gh := &fakeGitHub{}
		h, _ := newAuthHandler(t, gh)
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, callbackRequest("/auth/github/callback?code=abc&state=other", "s1"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, gh.gotCode, "code must not be exchanged")
	})

	t.Run("user cancelled on GitHub", func(t *testing.T) {
		h, _ := newAuthHandler(t, &fakeGitHub{})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, callbackRequest("/auth/github/callback?error=access_denied&state=s1", "s1"))
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
	})

	t.Run("exchange failure", func(t *testing.T) {
		h, _ := newAuthHandler(t, &fakeGitHub{err: errors.New("bad_verification_code")})
		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, callbackRequest("/auth/github/callback?code=abc&state=s1", "s1"))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Nil(t, cookieNamed(rr, auth.TokenCookie))
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	h, _ := newAuthHandler(t, &fakeGitHub{})

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, -1, cookieNamed(rr, auth.TokenCookie).MaxAge)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr = httptest.NewRecorder()
	h.HandleLogout(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestAuthHandler_Me(t *testing.T) {
	h, _ := newAuthHandler(t, &fakeGitHub{})

	rr := httptest.NewRecorder()
	h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	for _, tc := range []struct {
		id      auth.Identity
		allowed bool
	}{
		{auth.Identity{UserID: "1", Login: "owner"}, true},
		{auth.Identity{UserID: "2", Login: "visitor"}, false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), tc.id))
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		p := decode[service.Profile](t, rr)
		assert.Equal(t, tc.id.Login, p.Login)
		assert.Equal(t, tc.allowed, p.Allowed)
	}
}
