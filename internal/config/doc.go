// Package config handles configuration loading for miro-mcp.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. When no file exists the server can be configured entirely from
// MIRO_* environment variables (see FromEnv).
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from MIRO_MCP_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/miro-mcp/config.yaml (or ~/.config/miro-mcp/config.yaml)
//
// # Environment Variable Expansion
//
//	miro:
//	  client_id: "${MIRO_CLIENT_ID}"
//	  client_secret: "${MIRO_CLIENT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8787"
//	  public_url: "https://mcp.example.com"  # origin used in OAuth redirect URIs
//
//	miro:
//	  api_base_url: "https://api.miro.com/v2"
//	  token_url: "https://api.miro.com/v1/oauth/token"
//	  authorize_url: "https://miro.com/oauth/authorize"
//	  scopes: ["boards:read", "boards:write"]
//	  request_timeout: "0s"                   # zero disables the timeout
//
//	storage:
//	  driver: "sqlite"                        # sqlite, bolt, memory
//	  path: "~/.local/share/miro-mcp/credentials.db"
//	  encryption_key: "${MIRO_MCP_ENCRYPTION_KEY}"
//
//	auth:
//	  jwt_secret: "${MIRO_MCP_JWT_SECRET}"    # enables bearer auth on /mcp
//
//	tailscale:
//	  enabled: false
//	  hostname: "miro-mcp"
//	  funnel: true                            # public HTTPS for the OAuth redirect
//
//	logging:
//	  level: "info"
//	  format: "text"
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
