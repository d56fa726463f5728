// ABOUTME: Entry point for the miro-mcp server
// ABOUTME: Cobra root command with serve, token, tools, health, and version subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/j4jefferson/miro-mcp-server/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _
 _ __ ___ (_)_ __ ___        _ __ ___   ___ _ __
| '_ ' _ \| | '__/ _ \ _____| '_ ' _ \ / __| '_ \
| | | | | | | | | (_) |_____| | | | | | (__| |_) |
|_| |_| |_|_|_|  \___/      |_| |_| |_|\___| .__/
                                           |_|
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "miro-mcp",
		Short: "MCP tool server for Miro boards",
		Long:  "miro-mcp exposes Miro board operations as Model Context Protocol tools over HTTP.",
		// Errors are printed once by main.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config file (default: $MIRO_MCP_CONFIG or $XDG_CONFIG_HOME/miro-mcp/config.yaml)")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("miro-mcp version %s\n", version))

	root.AddCommand(newServeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newRevokeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// getConfigPath returns the path to the config file.
// Priority: --config flag > MIRO_MCP_CONFIG env var > XDG_CONFIG_HOME/miro-mcp/config.yaml > ~/.config/miro-mcp/config.yaml
func getConfigPath(cmd *cobra.Command) string {
	if flagPath, _ := cmd.Flags().GetString("config"); flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv("MIRO_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "miro-mcp", "config.yaml")
}

// loadConfig reads the resolved config file. When no file exists at the default
// location the configuration comes from MIRO_* environment variables instead.
// An explicitly requested file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := getConfigPath(cmd)
	explicit := cmd.Flags().Changed("config") || os.Getenv("MIRO_MCP_CONFIG") != ""

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, "", fmt.Errorf("loading config from environment: %w", err)
		}
		return cfg, "(environment)", nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
