// Sovereign Stack: a local, single-tenant MCP persistence and
// governance server.
//
// Usage:
//
//	sovereign-stack serve --transport stdio         # default
//	sovereign-stack serve --transport sse --addr :8765
//	sovereign-stack update
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	sovserver "github.com/sovereign-stack/sovereign-stack/internal/server"
	"github.com/sovereign-stack/sovereign-stack/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		transport, addr := parseServeFlags(os.Args[2:])
		if err := run(transport, addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("sovereign-stack v%s\n", sovserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func parseServeFlags(args []string) (transport, addr string) {
	transport = "stdio"
	addr = ":8765"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--transport":
			if i+1 < len(args) {
				transport = args[i+1]
				i++
			}
		case "--addr":
			if i+1 < len(args) {
				addr = args[i+1]
				i++
			}
		}
	}
	return transport, addr
}

func run(transport, addr string) error {
	s, cleanup, err := sovserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	go checkForUpdates()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	switch transport {
	case "stdio":
		_ = ctx // stdio server manages its own lifecycle
		return server.ServeStdio(s)
	case "sse":
		return serveSSE(s, addr)
	default:
		return fmt.Errorf("unknown transport %q, expected stdio or sse", transport)
	}
}

// serveSSE runs the SSE transport alongside a /health route, sharing a
// single http.Server on addr per spec.md §6.1.
func serveSSE(s *server.MCPServer, addr string) error {
	sseServer := server.NewSSEServer(s)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": sovserver.Version,
		})
	})
	mux.Handle("/", sseServer)

	fmt.Fprintf(os.Stderr, "sovereign-stack listening on %s (sse)\n", addr)
	return http.ListenAndServe(addr, mux)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(sovserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"     Run: sovereign-stack update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(sovserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(sovserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart sovereign-stack to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sovereign-stack v%s — local MCP persistence and governance server

Usage:
  sovereign-stack serve [--transport stdio|sse] [--addr :8765]
      Start the MCP server. Defaults to the stdio transport.
  sovereign-stack update
      Update to the latest version.

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "sovereign-stack": {
        "command": "sovereign-stack",
        "args": ["serve"]
      }
    }
  }

Storage root defaults to ~/.sovereign, or the SOVEREIGN_ROOT environment
variable if set.
`, sovserver.Version)
}
