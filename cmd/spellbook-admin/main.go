// ABOUTME: Admin CLI for the spellbook tool server.
// ABOUTME: Lists tools, invokes them, and issues tokens over the HTTP API.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/spellbook/internal/client"
)

const banner = `
                 _ _ _                 _
 ___ _ __   ___| | | |__   ___   ___ | | __      __ _  __| |_ __ ___ (_)_ __
/ __| '_ \ / _ \ | | '_ \ / _ \ / _ \| |/ /____ / _' |/ _' | '_ ' _ \| | '_ \
\__ \ |_) |  __/ | | |_) | (_) | (_) |   <_____| (_| | (_| | | | | | | | | | |
|___/ .__/ \___|_|_|_.__/ \___/ \___/|_|\_\     \__,_|\__,_|_| |_| |_|_|_| |_|
    |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("SPELLBOOK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	c := client.New(baseURL, client.WithToken(os.Getenv("SPELLBOOK_TOKEN")))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "tools":
		err = cmdTools(ctx, c)
	case "call":
		err = cmdCall(ctx, c, args)
	case "token":
		err = cmdToken(ctx, c, args)
	case "health":
		err = cmdHealth(ctx, c)
	case "info":
		err = cmdInfo(ctx, c)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: spellbook-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  tools                        List tools visible to you")
	fmt.Println("  call <tool-id> [json-input]  Invoke a tool")
	fmt.Println("  token create <identity> [--scope s]... [--ttl seconds]")
	fmt.Println("                               Issue an API token (requires admin)")
	fmt.Println("  health                       Check server health")
	fmt.Println("  info                         Show server info")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SPELLBOOK_URL    Server base URL (default: http://localhost:8080)")
	fmt.Println("  SPELLBOOK_TOKEN  Bearer token, if the server requires auth")
}

func cmdTools(ctx context.Context, c *client.Client) error {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}

	if len(tools) == 0 {
		fmt.Println("No tools available.")
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tVERSION\tDESCRIPTION")
	fmt.Fprintln(w, "  --\t-------\t-----------")
	for _, t := range tools {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", t.ID, t.Version, truncate(t.Description, 60))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdCall(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: call <tool-id> [json-input]")
	}
	toolID := args[0]

	var input any
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
			return fmt.Errorf("input must be valid JSON: %w", err)
		}
	}

	resp, err := c.CallTool(ctx, toolID, input)
	if err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("call_id: %s\n", resp.CallID)

	if !resp.Success {
		color.Red("tool failed: %s", resp.Output.Err.Message)
		if resp.Output.Err.DeveloperMessage != "" {
			gray.Printf("detail: %s\n", resp.Output.Err.DeveloperMessage)
		}
		return nil
	}

	out, err := json.MarshalIndent(resp.Output.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func cmdToken(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 2 || args[0] != "create" {
		return fmt.Errorf("usage: token create <identity> [--scope s]... [--ttl seconds]")
	}
	identity := args[1]

	var scopes []string
	var ttl int64
	rest := args[2:]
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--scope":
			if i+1 >= len(rest) {
				return fmt.Errorf("--scope requires a value")
			}
			scopes = append(scopes, rest[i+1])
			i++
		case rest[i] == "--ttl":
			if i+1 >= len(rest) {
				return fmt.Errorf("--ttl requires a value")
			}
			v, err := strconv.ParseInt(rest[i+1], 10, 64)
			if err != nil {
				return fmt.Errorf("--ttl must be an integer: %w", err)
			}
			ttl = v
			i++
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}

	input := map[string]any{"identity": identity}
	if len(scopes) > 0 {
		input["scopes"] = scopes
	}
	if ttl > 0 {
		input["ttl_seconds"] = ttl
	}

	resp, err := c.CallTool(ctx, "token_create", input)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s", resp.Output.Err.Message)
	}

	out, ok := resp.Output.Value.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected output shape %T", resp.Output.Value)
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Token issued for %s\n\n", identity)
	fmt.Printf("  token:      %v\n", out["token"])
	fmt.Printf("  token_id:   %v\n", out["token_id"])
	fmt.Printf("  expires_at: %v\n", out["expires_at"])
	return nil
}

func cmdHealth(ctx context.Context, c *client.Client) error {
	if err := c.Health(ctx); err != nil {
		return err
	}
	fmt.Println("healthy")
	return nil
}

func cmdInfo(ctx context.Context, c *client.Client) error {
	info, err := c.Info(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  name\t%s\n", info.Name)
	fmt.Fprintf(w, "  version\t%s\n", info.Version)
	fmt.Fprintf(w, "  tools\t%d\n", info.ToolCount)
	fmt.Fprintf(w, "  auth\t%t\n", info.AuthEnabled)
	w.Flush()
	fmt.Println()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
