// ABOUTME: HTTP front door routes: MCP endpoint, OAuth pages, health, metrics, and service info
// ABOUTME: Every response carries permissive CORS headers; preflight requests get an empty reply

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/j4jefferson/miro-mcp-server/internal/auth"
	"github.com/j4jefferson/miro-mcp-server/internal/mcp"
	"github.com/j4jefferson/miro-mcp-server/internal/oauth"
)

// ServiceName is reported by the service info endpoint.
const ServiceName = "Miro MCP Server"

// serviceInfo is the body served for any unmatched route.
type serviceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	Timestamp string            `json:"timestamp"`
}

type healthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// routes builds the mux. Routes without a method accept any method.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /mcp", auth.BearerMiddleware(g.verifier(), g.logger)(g.mcpServer))
	mux.HandleFunc("/auth", g.handleAuth)
	mux.HandleFunc(oauth.CallbackPath, g.handleCallback)
	mux.HandleFunc("/health", g.handleHealth)
	if g.metrics != nil {
		mux.Handle("GET "+g.config.Metrics.Path, g.metrics.Handler())
	}
	mux.HandleFunc("/", g.handleInfo)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// origin returns the scheme and host clients use to reach this server.
func (g *Gateway) origin(r *http.Request) string {
	if g.publicURL != "" {
		return g.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func (g *Gateway) timestamp() string {
	return g.now().UTC().Format(time.RFC3339Nano)
}

// handleHealth reports liveness. It does not touch the store or the Miro API.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{Status: "healthy", Timestamp: g.timestamp()})
}

func (g *Gateway) handleInfo(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"mcp":      "/mcp (POST)",
		"auth":     "/auth (GET)",
		"callback": oauth.CallbackPath + " (GET)",
		"health":   "/health (GET)",
	}
	if g.metrics != nil {
		endpoints["metrics"] = g.config.Metrics.Path + " (GET)"
	}
	writeJSON(w, http.StatusOK, serviceInfo{
		Service:   ServiceName,
		Version:   mcp.ServerVersion,
		Endpoints: endpoints,
		Timestamp: g.timestamp(),
	})
}

// handleAuth serves the page linking to the Miro consent screen.
func (g *Gateway) handleAuth(w http.ResponseWriter, r *http.Request) {
	authURL := g.tokens.AuthCodeURL(g.origin(r))
	g.renderPage(w, http.StatusOK, authPage, pageData{Title: "Miro MCP Authorization", URL: authURL})
}

// handleCallback completes the authorization-code flow and stores the credential.
func (g *Gateway) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		description := query.Get("error_description")
		if description == "" {
			description = "Unknown error"
		}
		g.logger.Warn("authorization denied", "error", errCode, "description", description)
		g.renderPage(w, http.StatusBadRequest, callbackErrorPage, pageData{
			Title:       "Authorization Failed",
			Error:       errCode,
			Description: description,
		})
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Authorization code not found", http.StatusBadRequest)
		return
	}

	if !g.codes.Claim(code) {
		g.logger.Warn("authorization code replayed")
		g.renderPage(w, http.StatusConflict, callbackFailedPage, pageData{
			Title: "Authorization Failed",
			Error: "authorization code was already used",
		})
		return
	}

	origin := g.origin(r)
	payload, err := g.tokens.Exchange(r.Context(), code, origin)
	if err == nil {
		err = g.tokens.Persist(r.Context(), payload)
	}
	if err != nil {
		g.codes.Release(code)
		g.logger.Error("OAuth callback failed", "error", err)
		g.renderPage(w, http.StatusInternalServerError, callbackFailedPage, pageData{
			Title: "Authorization Failed",
			Error: err.Error(),
		})
		return
	}

	g.renderPage(w, http.StatusOK, callbackSuccessPage, pageData{
		Title: "Authorization Successful",
		URL:   origin + "/mcp",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
