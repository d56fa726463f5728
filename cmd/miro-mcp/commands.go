// ABOUTME: Subcommand implementations for the miro-mcp CLI
// ABOUTME: serve runs the gateway; the other subcommands are operator helpers

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/j4jefferson/miro-mcp-server/internal/auth"
	"github.com/j4jefferson/miro-mcp-server/internal/gateway"
	"github.com/j4jefferson/miro-mcp-server/internal/oauth"
	"github.com/j4jefferson/miro-mcp-server/internal/store"
	"github.com/j4jefferson/miro-mcp-server/internal/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	// Print banner
	cyan := color.New(color.FgCyan)
	_, _ = cyan.Fprint(out, banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	_, _ = gray.Fprintf(out, "    version: %s\n\n", version)

	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, out)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	_, _ = green.Fprint(out, "    ▶ ")
	_, _ = fmt.Fprintf(out, "Config:    %s\n", configPath)
	if !cfg.Tailscale.Enabled {
		_, _ = green.Fprint(out, "    ▶ ")
		_, _ = fmt.Fprintf(out, "HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	_, _ = green.Fprint(out, "    ▶ ")
	_, _ = fmt.Fprintf(out, "Storage:   %s", cfg.Storage.Driver)
	if cfg.Storage.EncryptionKey != "" {
		_, _ = gray.Fprint(out, " (sealed)")
	}
	_, _ = fmt.Fprintln(out)
	if cfg.Auth.JWTSecret == "" {
		_, _ = yellow.Fprint(out, "    ! ")
		_, _ = fmt.Fprintln(out, "/mcp is open: set auth.jwt_secret to require bearer tokens")
	}

	// Tailscale status
	if cfg.Tailscale.Enabled {
		_, _ = green.Fprint(out, "    ▶ ")
		_, _ = fmt.Fprint(out, "Tailscale: ")
		_, _ = cyan.Fprint(out, cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			_, _ = yellow.Fprint(out, " [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			_, _ = gray.Fprint(out, " (ephemeral)")
		}
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out)

	logger.Info("starting miro-mcp",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"version", version,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(cmd.Context())
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the /mcp endpoint",
		Long:  "Signs a JWT with auth.jwt_secret. MCP clients send it as \"Authorization: Bearer <token>\".",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}
	cmd.Flags().String("subject", "", "Token subject, logged with each tool call (required)")
	cmd.Flags().Duration("ttl", 30*24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Delete the stored Miro credential",
		Long:  "Removes the stored access and refresh tokens. Stop the server first when using the sqlite or bolt driver.",
		Args:  cobra.NoArgs,
		RunE:  runRevoke,
	}
}

func runRevoke(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	credStore, err := store.Open(store.Options{
		Driver:        cfg.Storage.Driver,
		Path:          cfg.Storage.Path,
		EncryptionKey: cfg.Storage.EncryptionKey,
	})
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer credStore.Close()

	tokens, err := oauth.NewManager(oauth.Config{
		Store:    credStore,
		TokenURL: cfg.Miro.TokenURL,
		Logger:   setupLogger(cfg.Logging, cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}
	if err := tokens.Revoke(cmd.Context()); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "credential removed; visit /auth to authorize again")
	return nil
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools this server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := tools.NewRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			for _, def := range registry.Definitions() {
				_, _ = bold.Fprintf(out, "%-22s", def.Name)
				_, _ = fmt.Fprintf(out, " %s\n", def.Description)
			}
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}
	cmd.Flags().String("url", "", "Server base URL (default: derived from server.http_addr)")
	cmd.Flags().Duration("timeout", 5*time.Second, "Request timeout")
	return cmd
}

func runHealth(cmd *cobra.Command, _ []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if baseURL == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		baseURL = healthBaseURL(cfg.Server.PublicURL, cfg.Server.HTTPAddr)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("unhealthy: status %q", body.Status)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "healthy")
	return nil
}

// healthBaseURL picks the address to probe. A wildcard listen host is probed on loopback.
func healthBaseURL(publicURL, httpAddr string) string {
	if httpAddr == "" {
		return publicURL
	}
	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return "http://" + httpAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "miro-mcp version %s\n", version)
		},
	}
}
