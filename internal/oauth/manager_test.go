// ABOUTME: Tests for the OAuth token manager
// ABOUTME: Exchanges codes against an httptest token endpoint backed by the memory store

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j4jefferson/miro-mcp-server/internal/store"
)

func newTestManager(t *testing.T, s store.CredentialStore, tokenURL string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Store:        s,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthorizeURL: "https://miro.example/oauth/authorize",
		TokenURL:     tokenURL,
		Scopes:       []string{"boards:read", "boards:write"},
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresStore(t *testing.T) {
	_, err := NewManager(Config{TokenURL: "https://x"})
	assert.Error(t, err)
}

func TestAccessToken_Missing(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore(), "https://unused")

	_, err := m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoAccessToken)
	assert.Equal(t, "No access token found. Please authorize the application first.", err.Error())
}

func TestAccessToken_EmptyValueCountsAsMissing(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), store.KeyAccessToken, ""))
	m := newTestManager(t, s, "https://unused")

	_, err := m.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestAccessToken_Present(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), store.KeyAccessToken, "abc"))
	m := newTestManager(t, s, "https://unused")

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestExchange_Success(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":3599,"scope":"boards:read boards:write","user_id":"u-1","team_id":"t-1"}`))
	}))
	defer srv.Close()

	m := newTestManager(t, store.NewMemoryStore(), srv.URL)

	payload, err := m.Exchange(context.Background(), "the-code", "https://mcp.example.com/")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "the-code", gotForm.Get("code"))
	assert.Equal(t, "client-id", gotForm.Get("client_id"))
	assert.Equal(t, "client-secret", gotForm.Get("client_secret"))
	assert.Equal(t, "https://mcp.example.com/oauth/callback", gotForm.Get("redirect_uri"))

	assert.Equal(t, "new-access", payload.AccessToken)
	assert.Equal(t, "new-refresh", payload.RefreshToken)
	assert.Equal(t, "t-1", payload.TeamID)
	assert.Equal(t, "u-1", payload.UserID)
	assert.Equal(t, int64(3599), payload.ExpiresIn)
}

func TestExchange_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	m := newTestManager(t, store.NewMemoryStore(), srv.URL)

	_, err := m.Exchange(context.Background(), "bad-code", "https://mcp.example.com")
	require.Error(t, err)

	var exErr *TokenExchangeError
	require.True(t, errors.As(err, &exErr), "expected TokenExchangeError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, exErr.StatusCode)
	assert.Contains(t, exErr.Body, "invalid_grant")
	assert.True(t, strings.HasPrefix(err.Error(), "Token exchange failed (400): "))
}

func TestPersist(t *testing.T) {
	ctx := context.Background()

	t.Run("stores both tokens", func(t *testing.T) {
		s := store.NewMemoryStore()
		m := newTestManager(t, s, "https://unused")

		require.NoError(t, m.Persist(ctx, &TokenPayload{AccessToken: "a", RefreshToken: "r"}))

		access, err := s.Get(ctx, store.KeyAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "a", access)
		refresh, err := s.Get(ctx, store.KeyRefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "r", refresh)
	})

	t.Run("skips missing refresh token", func(t *testing.T) {
		s := store.NewMemoryStore()
		m := newTestManager(t, s, "https://unused")

		require.NoError(t, m.Persist(ctx, &TokenPayload{AccessToken: "a"}))

		_, err := s.Get(ctx, store.KeyRefreshToken)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("overwrites previous credential", func(t *testing.T) {
		s := store.NewMemoryStore()
		m := newTestManager(t, s, "https://unused")

		require.NoError(t, m.Persist(ctx, &TokenPayload{AccessToken: "first"}))
		require.NoError(t, m.Persist(ctx, &TokenPayload{AccessToken: "second"}))

		token, err := m.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", token)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		m := newTestManager(t, store.NewMemoryStore(), "https://unused")
		assert.Error(t, m.Persist(ctx, &TokenPayload{}))
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := newTestManager(t, s, "https://unused")

	require.NoError(t, m.Persist(ctx, &TokenPayload{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, m.Revoke(ctx))

	_, err := m.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNoAccessToken)
	_, err = s.Get(ctx, store.KeyRefreshToken)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Revoking with nothing stored is not an error.
	assert.NoError(t, m.Revoke(ctx))
}

func TestAuthCodeURL(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore(), "https://unused")

	raw := m.AuthCodeURL("https://mcp.example.com")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "miro.example", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://mcp.example.com/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "boards:read boards:write", q.Get("scope"))
}
