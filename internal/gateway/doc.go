// Package gateway assembles the miro-mcp server and runs its HTTP front door.
//
// # Overview
//
// New opens the credential store and wires the components in dependency order:
//
//	store.CredentialStore -> oauth.Manager -> miro.Client -> tools.Engine -> mcp.Server
//
// Run binds a listener (plain TCP, or a Tailscale node when tailscale.enabled is
// set) and serves until its context is canceled, then shuts down with a five
// second grace period and closes the store.
//
// # HTTP Routes
//
//   - POST /mcp - JSON-RPC endpoint, behind bearer auth when auth.jwt_secret is set
//   - GET /auth - page linking to the Miro consent screen
//   - GET /oauth/callback - exchanges the authorization code and stores the credential
//   - GET /health - liveness, {"status":"healthy","timestamp":...}
//   - GET /metrics - Prometheus exposition, when metrics.enabled is set
//   - anything else - JSON service info
//
// Every response carries permissive CORS headers and OPTIONS requests are answered
// with an empty 204.
//
// # Redirect Origin
//
// The OAuth redirect URI is <origin>/oauth/callback. The origin is server.public_url
// when configured. With Tailscale HTTPS or Funnel it is the node's DNS name.
// Otherwise it is derived per request from X-Forwarded-Proto (or TLS) and Host.
// The same origin must be used for /auth and the callback or Miro rejects the
// exchange.
package gateway
