// Package main provides the MCP server entry point for the navigation index.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mike-a-ellis/navindex/internal/config"
	mcpserver "github.com/mike-a-ellis/navindex/internal/mcp"
	"github.com/mike-a-ellis/navindex/internal/search"
)

var version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "config file (default: navindex.yaml if present)")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// stdout carries the stdio transport, so logs go to stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	facade, store, err := search.Open(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer store.Close()

	server := mcpserver.NewServer(facade, version)
	mux := mcpserver.NewMux(server, store, nil)

	port := getEnv("PORT", "8080")
	addr := "0.0.0.0:" + port

	// Check if running in server mode (HTTP) or stdio mode (local development)
	if getEnv("SERVER_MODE", "false") == "true" {
		httpServer := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			httpServer.Shutdown(context.Background())
		}()

		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode, with the health endpoint in the background for local testing
	go func() {
		log.Printf("Starting health server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting navindex MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
