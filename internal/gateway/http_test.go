// ABOUTME: Tests for the HTTP front door routes and OAuth callback pages
// ABOUTME: Drives the gateway handler directly with httptest recorders

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j4jefferson/miro-mcp-server/internal/auth"
	"github.com/j4jefferson/miro-mcp-server/internal/store"
)

func serve(gw *Gateway, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2025-03-01T12:00:00Z"}`, rr.Body.String())
}

func TestServiceInfo(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	for _, target := range []string{"/", "/anything/else", "/mcp"} {
		t.Run(target, func(t *testing.T) {
			rr := serve(gw, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{
				"service": "Miro MCP Server",
				"version": "1.0.0",
				"endpoints": {
					"mcp": "/mcp (POST)",
					"auth": "/auth (GET)",
					"callback": "/oauth/callback (GET)",
					"health": "/health (GET)"
				},
				"timestamp": "2025-03-01T12:00:00Z"
			}`, rr.Body.String())
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"info", http.MethodGet, "/", http.StatusOK},
		{"callback without code", http.MethodGet, "/oauth/callback", http.StatusBadRequest},
		{"preflight", http.MethodOptions, "/mcp", http.StatusNoContent},
		{"preflight elsewhere", http.MethodOptions, "/whatever", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(gw, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization", rr.Header().Get("Access-Control-Allow-Headers"))
			if tt.method == http.MethodOptions {
				assert.Empty(t, rr.Body.String())
			}
		})
	}
}

func TestAuthPage(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	req := httptest.NewRequest(http.MethodGet, "http://mcp.example.com/auth", nil)
	rr := serve(gw, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, "<title>Miro MCP Authorization</title>")
	assert.Contains(t, body, "Authorize Miro Access</a>")
	assert.Contains(t, body, `href="https://miro.com/oauth/authorize?`)
	assert.Contains(t, body, "client_id=client-123")
	assert.Contains(t, body, "redirect_uri="+url.QueryEscape("http://mcp.example.com/oauth/callback"))
	assert.Contains(t, body, "response_type=code")
	assert.Contains(t, body, "scope="+url.QueryEscape("boards:read boards:write"))
	assert.NotContains(t, body, "raw HTML omitted")
}

func TestOrigin(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	plain := httptest.NewRequest(http.MethodGet, "http://mcp.example.com/auth", nil)
	assert.Equal(t, "http://mcp.example.com", gw.origin(plain))

	forwarded := httptest.NewRequest(http.MethodGet, "http://mcp.example.com/auth", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https, http")
	assert.Equal(t, "https://mcp.example.com", gw.origin(forwarded))

	secure := httptest.NewRequest(http.MethodGet, "https://mcp.example.com/auth", nil)
	assert.Equal(t, "https://mcp.example.com", gw.origin(secure))

	gw.publicURL = "https://public.example.org"
	assert.Equal(t, "https://public.example.org", gw.origin(plain))
}

func TestAuthPage_PublicURL(t *testing.T) {
	fake := newFakeMiro(t)
	cfg := testConfig(t, fake)
	cfg.Server.PublicURL = "https://miro-mcp.tail1234.ts.net/"
	gw := newTestGateway(t, cfg)

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8787/auth", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "redirect_uri="+url.QueryEscape("https://miro-mcp.tail1234.ts.net/oauth/callback"))
}

func TestCallback_ErrorParam(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	tests := []struct {
		name     string
		query    string
		contains []string
	}{
		{
			name:     "default description",
			query:    "error=access_denied",
			contains: []string{"Authorization Failed", "Error: access_denied", "Description: Unknown error"},
		},
		{
			name:     "provider description",
			query:    "error=invalid_scope&error_description=" + url.QueryEscape("Scope is not allowed"),
			contains: []string{"Error: invalid_scope", "Description: Scope is not allowed"},
		},
		{
			name:     "error wins over code",
			query:    "error=server_error&code=abc",
			contains: []string{"Error: server_error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?"+tt.query, nil))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			for _, want := range tt.contains {
				assert.Contains(t, rr.Body.String(), want)
			}
		})
	}

	_, err := gw.store.Get(context.Background(), store.KeyAccessToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCallback_ErrorParamIsEscaped(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	query := "error=" + url.QueryEscape("<script>alert(1)</script>")
	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?"+query, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestCallback_MissingCode(t *testing.T) {
	fake := newFakeMiro(t)
	gw := newTestGateway(t, testConfig(t, fake))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Authorization code not found", strings.TrimSpace(rr.Body.String()))
	assert.Nil(t, fake.tokenForm, "token endpoint must not be called")
}

func TestCallback_Success(t *testing.T) {
	fake := newFakeMiro(t)
	gw := newTestGateway(t, testConfig(t, fake))

	req := httptest.NewRequest(http.MethodGet, "http://mcp.example.com/oauth/callback?code=auth-code-1", nil)
	rr := serve(gw, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<title>Authorization Successful</title>")
	assert.Contains(t, body, "Authorization Successful!")
	assert.Contains(t, body, "<strong>MCP Server URL:</strong> http://mcp.example.com/mcp")

	fake.mu.Lock()
	form := fake.tokenForm
	fake.mu.Unlock()
	require.NotNil(t, form)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code-1", form.Get("code"))
	assert.Equal(t, "client-123", form.Get("client_id"))
	assert.Equal(t, "secret-456", form.Get("client_secret"))
	assert.Equal(t, "http://mcp.example.com/oauth/callback", form.Get("redirect_uri"))

	access, err := gw.store.Get(context.Background(), store.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", access)
	refresh, err := gw.store.Get(context.Background(), store.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	fake := newFakeMiro(t)
	fake.tokenStatus = http.StatusBadRequest
	fake.tokenBody = `{"error":"invalid_grant"}`
	gw := newTestGateway(t, testConfig(t, fake))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=stale", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Authorization Failed")
	assert.Contains(t, rr.Body.String(), "Error: Token exchange failed (400)")

	_, err := gw.store.Get(context.Background(), store.KeyAccessToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCallback_ThenToolCall(t *testing.T) {
	fake := newFakeMiro(t)
	gw := newTestGateway(t, testConfig(t, fake))

	call := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"list_boards","arguments":{}}}`

	rr := serve(gw, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(call)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":7,"error":{"code":-32603,"message":"No access token found. Please authorize the application first."}}`,
		rr.Body.String())

	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=auth-code-1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(gw, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(call)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":7,"result":{"content":[{"type":"text","text":"📋 Your Miro boards:\n• Roadmap (b1)"}]}}`,
		rr.Body.String())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"Bearer fresh-token"}, fake.apiAuth)
}

func TestMCP_BearerAuth(t *testing.T) {
	fake := newFakeMiro(t)
	cfg := testConfig(t, fake)
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	gw := newTestGateway(t, cfg)

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize"}`

	rr := serve(gw, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initialize)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate("claude-desktop", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initialize))
	req.Header.Set("Authorization", "Bearer "+token)
	rr = serve(gw, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Result struct {
			ProtocolVersion string `json:"protocolVersion"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2024-11-05", resp.Result.ProtocolVersion)

	// Pages used during authorization stay public.
	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/auth", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = serve(gw, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	fake := newFakeMiro(t)
	cfg := testConfig(t, fake)
	cfg.Metrics.Enabled = true
	gw := newTestGateway(t, cfg)

	rr := serve(gw, httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `miro_mcp_rpc_requests_total{method="tools/list",outcome="success"} 1`)

	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/", nil))
	var info serviceInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "/metrics (GET)", info.Endpoints["metrics"])
}

func TestMetricsRoute_Disabled(t *testing.T) {
	gw := newTestGateway(t, testConfig(t, newFakeMiro(t)))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Falls through to service info.
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"service":"Miro MCP Server"`)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", escapeMarkdown("plain text"))
	assert.Equal(t, `access\_denied`, escapeMarkdown("access_denied"))
	assert.Equal(t, `\<b\>\*hi\*\<\/b\>`, escapeMarkdown("<b>*hi*</b>"))
	assert.Equal(t, "✅ ok", escapeMarkdown("✅ ok"))
}

func TestCallback_ReplayedCode(t *testing.T) {
	fake := newFakeMiro(t)
	gw := newTestGateway(t, testConfig(t, fake))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=once", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	fake.mu.Lock()
	fake.tokenForm = nil
	fake.mu.Unlock()

	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=once", nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "authorization code was already used")

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Nil(t, fake.tokenForm, "replayed code must not reach the token endpoint")
}

func TestCallback_FailedCodeCanBeRetried(t *testing.T) {
	fake := newFakeMiro(t)
	fake.tokenStatus = http.StatusBadGateway
	fake.tokenBody = `{"error":"temporarily_unavailable"}`
	gw := newTestGateway(t, testConfig(t, fake))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=retry-me", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 0, gw.codes.Len(), "failed exchange releases the code")

	fake.mu.Lock()
	fake.tokenStatus = http.StatusOK
	fake.tokenBody = `{"access_token":"second-try","token_type":"bearer"}`
	fake.mu.Unlock()

	rr = serve(gw, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=retry-me", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	access, err := gw.store.Get(context.Background(), store.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "second-try", access)
}
