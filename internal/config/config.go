// ABOUTME: Configuration loading and parsing for miro-mcp
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is left empty.
const (
	DefaultHTTPAddr      = "0.0.0.0:8787"
	DefaultAPIBaseURL    = "https://api.miro.com/v2"
	DefaultTokenURL      = "https://api.miro.com/v1/oauth/token"
	DefaultAuthorizeURL  = "https://miro.com/oauth/authorize"
	DefaultStorageDriver = "sqlite"
	DefaultMetricsPath   = "/metrics"
)

// DefaultScopes are requested when miro.scopes is empty.
var DefaultScopes = []string{"boards:read", "boards:write"}

// Config represents the complete miro-mcp configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Miro      MiroConfig      `yaml:"miro" toml:"miro"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the HTTP front door configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// PublicURL is the externally reachable origin used for OAuth redirect URIs.
	// If not set, it's derived from each incoming request.
	PublicURL string `yaml:"public_url" toml:"public_url"`
}

// MiroConfig holds the OAuth client and REST API settings
type MiroConfig struct {
	ClientID     string   `yaml:"client_id" toml:"client_id"`
	ClientSecret string   `yaml:"client_secret" toml:"client_secret"`
	TokenURL     string   `yaml:"token_url" toml:"token_url"`
	AuthorizeURL string   `yaml:"authorize_url" toml:"authorize_url"`
	APIBaseURL   string   `yaml:"api_base_url" toml:"api_base_url"`
	Scopes       []string `yaml:"scopes" toml:"scopes"`

	// RequestTimeout bounds each REST call. Zero means no timeout.
	RequestTimeout    time.Duration `yaml:"-" toml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout" toml:"request_timeout"`
}

// StorageConfig selects the credential store backend
type StorageConfig struct {
	Driver        string `yaml:"driver" toml:"driver"` // sqlite, bolt, memory
	Path          string `yaml:"path" toml:"path"`
	EncryptionKey string `yaml:"encryption_key" toml:"encryption_key"`
}

// AuthConfig holds authentication configuration for the /mcp endpoint
type AuthConfig struct {
	// JWTSecret enables bearer auth on /mcp when set.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // TLS with Tailscale-provisioned certs
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Public Funnel, needed for the OAuth redirect
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config purely from MIRO_* environment variables.
// Used when no config file exists, mirroring a worker-style deployment.
func FromEnv() (*Config, error) {
	cfg := Config{
		Server: ServerConfig{
			HTTPAddr:  os.Getenv("MIRO_MCP_HTTP_ADDR"),
			PublicURL: os.Getenv("MIRO_MCP_PUBLIC_URL"),
		},
		Miro: MiroConfig{
			ClientID:     os.Getenv("MIRO_CLIENT_ID"),
			ClientSecret: os.Getenv("MIRO_CLIENT_SECRET"),
		},
		Storage: StorageConfig{
			Path:          os.Getenv("MIRO_MCP_DB"),
			EncryptionKey: os.Getenv("MIRO_MCP_ENCRYPTION_KEY"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("MIRO_MCP_JWT_SECRET"),
		},
		Logging: LoggingConfig{
			Level: os.Getenv("MIRO_MCP_LOG_LEVEL"),
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills empty fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Miro.APIBaseURL == "" {
		c.Miro.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Miro.TokenURL == "" {
		c.Miro.TokenURL = DefaultTokenURL
	}
	if c.Miro.AuthorizeURL == "" {
		c.Miro.AuthorizeURL = DefaultAuthorizeURL
	}
	if len(c.Miro.Scopes) == 0 {
		c.Miro.Scopes = append([]string(nil), DefaultScopes...)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.Path == "" && c.Storage.Driver != "memory" {
		c.Storage.Path = defaultStoragePath(c.Storage.Driver)
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Server.PublicURL != "" {
		u, err := url.Parse(c.Server.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.public_url must be an absolute URL, got %q", c.Server.PublicURL)
		}
	}

	if c.Miro.ClientID == "" {
		return fmt.Errorf("miro.client_id is required")
	}
	if c.Miro.ClientSecret == "" {
		return fmt.Errorf("miro.client_secret is required")
	}

	for name, raw := range map[string]string{
		"miro.api_base_url":  c.Miro.APIBaseURL,
		"miro.token_url":     c.Miro.TokenURL,
		"miro.authorize_url": c.Miro.AuthorizeURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}

	switch c.Storage.Driver {
	case "sqlite", "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, bolt, memory, got %q", c.Storage.Driver)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Miro.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Miro.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Miro.RequestTimeoutRaw, err)
		}
		if d < 0 {
			return fmt.Errorf("request_timeout must not be negative, got %s", d)
		}
		cfg.Miro.RequestTimeout = d
	}
	return nil
}

// defaultStoragePath returns the credential database path under the XDG data dir.
// Priority: XDG_DATA_HOME/miro-mcp > ~/.local/share/miro-mcp
func defaultStoragePath(driver string) string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			dataDir = "data"
		} else {
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	name := "credentials.db"
	if driver == "bolt" {
		name = "credentials.bolt"
	}
	return filepath.Join(dataDir, "miro-mcp", name)
}
