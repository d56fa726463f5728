// ABOUTME: Token manager holding the process-wide Miro OAuth credential
// ABOUTME: Reads the stored access token and performs the authorization-code exchange

package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/j4jefferson/miro-mcp-server/internal/store"
)

// CallbackPath is appended to the request origin to form the redirect URI.
const CallbackPath = "/oauth/callback"

// ErrNoAccessToken is returned when no credential has been stored yet.
var ErrNoAccessToken = errors.New("No access token found. Please authorize the application first.")

// TokenExchangeError reports a non-success response from the token endpoint.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("Token exchange failed (%d): %s", e.StatusCode, e.Body)
}

// TokenPayload is the token endpoint response handed back to the callback handler.
type TokenPayload struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	UserID       string
	TeamID       string
	ExpiresIn    int64
}

// Config holds configuration for the token manager.
type Config struct {
	Store        store.CredentialStore
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	Scopes       []string
	HTTPClient   *http.Client // optional, used for the token exchange
	Logger       *slog.Logger
}

// Manager owns the credential store and the OAuth client configuration.
type Manager struct {
	store        store.CredentialStore
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	scopes       []string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewManager creates a token manager with the given configuration.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("token URL is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:        cfg.Store,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		scopes:     append([]string(nil), cfg.Scopes...),
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}, nil
}

// AccessToken returns the persisted access token.
// It is read on every call so a new authorization takes effect immediately.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, err := m.store.Get(ctx, store.KeyAccessToken)
	if errors.Is(err, store.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNoAccessToken
	}
	if err != nil {
		return "", fmt.Errorf("reading access token: %w", err)
	}
	return token, nil
}

// AuthCodeURL returns the authorization URL whose redirect points back at origin.
func (m *Manager) AuthCodeURL(origin string) string {
	return m.oauthConfig(origin).AuthCodeURL("")
}

// Exchange performs the authorization-code grant. The redirect URI must match the
// one used for AuthCodeURL, so it is rebuilt from the same origin.
func (m *Manager) Exchange(ctx context.Context, code, origin string) (*TokenPayload, error) {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	tok, err := m.oauthConfig(origin).Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &TokenExchangeError{StatusCode: re.Response.StatusCode, Body: string(re.Body)}
		}
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	payload := &TokenPayload{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        extraString(tok, "scope"),
		UserID:       extraString(tok, "user_id"),
		TeamID:       extraString(tok, "team_id"),
	}
	if v, ok := tok.Extra("expires_in").(float64); ok {
		payload.ExpiresIn = int64(v)
	}

	m.logger.Info("authorization code exchanged", "team_id", payload.TeamID, "scope", payload.Scope)
	return payload, nil
}

// Persist stores the access token and, when present, the refresh token.
func (m *Manager) Persist(ctx context.Context, payload *TokenPayload) error {
	if payload == nil || payload.AccessToken == "" {
		return errors.New("token payload has no access token")
	}
	if err := m.store.Put(ctx, store.KeyAccessToken, payload.AccessToken); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	if payload.RefreshToken != "" {
		if err := m.store.Put(ctx, store.KeyRefreshToken, payload.RefreshToken); err != nil {
			return fmt.Errorf("storing refresh token: %w", err)
		}
	}
	m.logger.Info("credential stored", "has_refresh_token", payload.RefreshToken != "")
	return nil
}

// Revoke forgets the stored credential. Tool calls fail with ErrNoAccessToken
// until the application is authorized again. Miro is not contacted.
func (m *Manager) Revoke(ctx context.Context) error {
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken} {
		if err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	m.logger.Info("credential revoked")
	return nil
}

func (m *Manager) oauthConfig(origin string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Endpoint:     m.endpoint,
		RedirectURL:  strings.TrimRight(origin, "/") + CallbackPath,
		Scopes:       m.scopes,
	}
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
