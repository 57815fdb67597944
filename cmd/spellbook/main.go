// ABOUTME: Entry point for the spellbook tool server.
// ABOUTME: Serves the versioned tool catalog over HTTP and optionally MCP.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/spellbook/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _ _ _                 _
 ___ _ __   ___| | | |__   ___   ___ | | __
/ __| '_ \ / _ \ | | '_ \ / _ \ / _ \| |/ /
\__ \ |_) |  __/ | | |_) | (_) | (_) |   <
|___/ .__/ \___|_|_|_.__/ \___/ \___/|_|\_\
    |_|
`

// getConfigPath returns the path to the server config file.
// Priority: SPELLBOOK_CONFIG env var > XDG_CONFIG_HOME/spellbook/spellbook.yaml > ~/.config/spellbook/spellbook.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SPELLBOOK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "spellbook.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "spellbook", "spellbook.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: spellbook <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the tool server")
		fmt.Println("  init      Write a starter config file")
		fmt.Println("  health    Check server health")
		fmt.Println("  version   Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfigOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	if cfg.Auth.Mode == "" {
		fmt.Printf("Auth:     disabled\n")
	} else {
		fmt.Printf("Auth:     %s\n", cfg.Auth.Mode)
	}
	if cfg.MCP.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("MCP:      /mcp\n")
	}
	fmt.Println()

	logger.Info("starting spellbook",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"auth_mode", cfg.Auth.Mode,
	)

	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}

// loadConfigOrDefault loads the config file, falling back to defaults when
// the file does not exist.
func loadConfigOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

const starterConfig = `server:
  http_addr: ":8080"
  name: spellbook
database:
  path: spellbook.db
auth:
  mode: ""           # set to "jwt" and provide jwt_secret to require auth
  jwt_secret: ${SPELLBOOK_JWT_SECRET}
tools:
  call_timeout: 30s
mcp:
  enabled: true
logging:
  level: info
  format: text
`

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.New(color.FgGreen).Print("✓ ")
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfigOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", hostport(cfg.Server.HTTPAddr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// hostport makes a listen address dialable, defaulting the host to localhost.
func hostport(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
