// ABOUTME: Gateway orchestrator that wires the credential store, tool engine, and HTTP front door
// ABOUTME: Manages listeners (TCP or Tailscale), graceful shutdown, and component lifecycle

package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/j4jefferson/miro-mcp-server/internal/auth"
	"github.com/j4jefferson/miro-mcp-server/internal/config"
	"github.com/j4jefferson/miro-mcp-server/internal/dedupe"
	"github.com/j4jefferson/miro-mcp-server/internal/mcp"
	"github.com/j4jefferson/miro-mcp-server/internal/metrics"
	"github.com/j4jefferson/miro-mcp-server/internal/miro"
	"github.com/j4jefferson/miro-mcp-server/internal/oauth"
	"github.com/j4jefferson/miro-mcp-server/internal/store"
	"github.com/j4jefferson/miro-mcp-server/internal/tools"
)

// Gateway owns every long-lived component of the server.
type Gateway struct {
	config      *config.Config
	store       store.CredentialStore
	tokens      *oauth.Manager
	codes       *dedupe.Cache
	engine      *tools.Engine
	mcpServer   *mcp.Server
	metrics     *metrics.Prometheus
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// publicURL is the origin used for OAuth redirect URIs. When empty the
	// origin is derived from each request.
	publicURL string

	now func() time.Time
}

// New builds a gateway from configuration. Nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	credStore, err := store.Open(store.Options{
		Driver:        cfg.Storage.Driver,
		Path:          cfg.Storage.Path,
		EncryptionKey: cfg.Storage.EncryptionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		store:     credStore,
		logger:    logger,
		publicURL: strings.TrimRight(cfg.Server.PublicURL, "/"),
		now:       time.Now,
	}

	if err := gw.buildComponents(); err != nil {
		_ = credStore.Close()
		return nil, err
	}
	gw.codes = dedupe.New(dedupe.DefaultTTL, dedupe.DefaultMaxSize)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("gateway initialized",
		"storage_driver", cfg.Storage.Driver,
		"encrypted", cfg.Storage.EncryptionKey != "",
		"endpoint_auth", cfg.Auth.JWTSecret != "",
		"metrics", cfg.Metrics.Enabled,
		"tools", len(gw.engine.Definitions()),
	)
	return gw, nil
}

// buildComponents wires token manager, API adapter, registry, engine and dispatcher.
func (g *Gateway) buildComponents() error {
	var recorder metrics.Recorder = metrics.Noop{}
	if g.config.Metrics.Enabled {
		g.metrics = metrics.NewPrometheus()
		recorder = g.metrics
	}

	tokens, err := oauth.NewManager(oauth.Config{
		Store:        g.store,
		ClientID:     g.config.Miro.ClientID,
		ClientSecret: g.config.Miro.ClientSecret,
		AuthorizeURL: g.config.Miro.AuthorizeURL,
		TokenURL:     g.config.Miro.TokenURL,
		Scopes:       g.config.Miro.Scopes,
		Logger:       g.logger.With("component", "oauth"),
	})
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}
	g.tokens = tokens

	client, err := miro.NewClient(miro.Config{
		BaseURL: g.config.Miro.APIBaseURL,
		Tokens:  tokens,
		Timeout: g.config.Miro.RequestTimeout,
		Metrics: recorder,
		Logger:  g.logger.With("component", "miro"),
	})
	if err != nil {
		return fmt.Errorf("creating Miro client: %w", err)
	}

	registry, err := tools.NewRegistry()
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	engine, err := tools.NewEngine(tools.Config{
		Registry: registry,
		API:      client,
		Metrics:  recorder,
		Logger:   g.logger.With("component", "tools"),
	})
	if err != nil {
		return fmt.Errorf("creating tool engine: %w", err)
	}
	g.engine = engine

	mcpServer, err := mcp.NewServer(mcp.Config{
		Tools:   engine,
		Logger:  g.logger.With("component", "mcp"),
		Metrics: recorder,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	g.mcpServer = mcpServer
	return nil
}

// verifier returns the bearer verifier for /mcp, or nil when endpoint auth is off.
func (g *Gateway) verifier() auth.TokenVerifier {
	if g.config.Auth.JWTSecret == "" {
		return nil
	}
	return auth.NewJWTVerifier([]byte(g.config.Auth.JWTSecret))
}

// Handler returns the HTTP handler serving every route.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// setupTCPListener creates a standard TCP listener for HTTP.
func (g *Gateway) setupTCPListener() (net.Listener, error) {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// warnIgnoredAddress logs a warning if an HTTP address is configured but Tailscale is enabled.
func (g *Gateway) warnIgnoredAddress() {
	if g.config.Server.HTTPAddr != "" {
		g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
			"http_addr", g.config.Server.HTTPAddr,
		)
	}
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		g.warnIgnoredAddress()
		return g.setupTailscaleListener(ctx)
	}
	return g.setupTCPListener()
}

// startServer serves HTTP in a goroutine, returning the error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts serving and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The caller's context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "miro-mcp", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

// setupTailscaleListener joins the tailnet and returns the HTTP listener.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}

	g.logTailscaleStatus(tsCfg.Hostname, status)
	g.updatePublicURLFromStatus(status)

	return g.createTailscaleHTTPListener(tsCfg)
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// updatePublicURLFromStatus pins the OAuth origin to the node's HTTPS DNS name
// unless server.public_url was set explicitly.
func (g *Gateway) updatePublicURLFromStatus(status *ipnstate.Status) {
	if g.config.Server.PublicURL != "" {
		return
	}
	if !g.config.Tailscale.HTTPS && !g.config.Tailscale.Funnel {
		return
	}
	if status.Self == nil || status.Self.DNSName == "" {
		return
	}
	origin := "https://" + strings.TrimSuffix(status.Self.DNSName, ".")
	if origin != g.publicURL {
		g.logger.Info("using Tailscale DNS name for OAuth redirects", "old", g.publicURL, "new", origin)
		g.publicURL = origin
	}
}

// createTailscaleHTTPListener creates the appropriate HTTP listener based on config.
func (g *Gateway) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		g.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := g.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return g.createTailscaleTLSListener()
	default:
		ln, err := g.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using Tailscale's auto-provisioned certs.
func (g *Gateway) createTailscaleTLSListener() (net.Listener, error) {
	g.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := g.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := g.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())
	g.codes.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
