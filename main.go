// MediaWiki MCP Server - A Model Context Protocol server for MediaWiki wikis
// Provides tools for searching wikis, reading pages and sections, following
// page links and walking category trees.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mediawiki-mcp-server/tools"
	"github.com/olgasafonova/mediawiki-mcp-server/tracing"
	"github.com/olgasafonova/mediawiki-mcp-server/wiki"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ServerName    = "mediawiki-mcp-server"
	ServerVersion = "2.0.0"

	defaultMaxBodySize = 1 << 20
)

const serverInstructions = `MediaWiki MCP Server provides read access to a MediaWiki wiki (Wikipedia by default).

Available tools:
- mediawiki_search: Full-text search for pages
- mediawiki_prefix_search: Titles starting with a prefix
- mediawiki_random: Random article titles
- mediawiki_get_page: Page content, following redirects; reports disambiguation options
- mediawiki_get_summary: Plain-text introduction of a page
- mediawiki_get_sections: Section outline, or one section's text and links
- mediawiki_get_page_links: Links, backlinks, categories, images, references, redirects or language links
- mediawiki_get_category_members: Pages and subcategories of a category
- mediawiki_category_tree: Recursive category hierarchy with a depth limit

Configure via environment variables:
- MEDIAWIKI_URL: Wiki API URL (default https://en.wikipedia.org/w/api.php)
- MEDIAWIKI_LANG: Language edition of Wikimedia wikis (default en)
- MEDIAWIKI_USERNAME / MEDIAWIKI_PASSWORD: Bot password for logged-in requests (optional)`

func main() {
	httpAddr := flag.String("http", "", "serve MCP over streamable HTTP on this address instead of stdio")
	configPath := flag.String("config", "", "YAML configuration file; environment variables override its values")
	flag.Parse()

	// stdout carries the MCP protocol in stdio mode
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *httpAddr); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, httpAddr string) error {
	shutdown, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client, err := wiki.NewClient(config, wiki.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create wiki client: %w", err)
	}
	if config.HasCredentials() {
		if err := client.Login(ctx); err != nil {
			logger.Warn("Login failed, continuing anonymously", "error", err)
		}
	}

	server := newServer(client, logger)

	if addr := os.Getenv("METRICS_ADDR"); addr != "" && httpAddr == "" {
		go serveMetrics(ctx, addr, logger)
	}

	logger.Info("Starting MediaWiki MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", client.APIURL(),
		"transport", transportName(httpAddr),
	)

	if httpAddr != "" {
		return runHTTP(ctx, server, httpAddr, logger)
	}
	return server.Run(ctx, &mcp.StdioTransport{})
}

func loadConfig(path string) (*wiki.Config, error) {
	if path != "" {
		return wiki.LoadConfigFile(path)
	}
	return wiki.LoadConfig()
}

// newServer creates the MCP server with every wiki tool registered
func newServer(client *wiki.Client, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions,
	})
	tools.NewHandlerRegistry(client, logger).RegisterAll(server)
	return server
}

// newHTTPHandler routes /mcp through the security middleware and exposes /health and /metrics
func newHTTPHandler(server *mcp.Server, logger *slog.Logger, config SecurityConfig) (http.Handler, func()) {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	secured := NewSecurityMiddleware(mcpHandler, logger, config)

	mux := http.NewServeMux()
	mux.Handle("/mcp", secured)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux, secured.Close
}

func runHTTP(ctx context.Context, server *mcp.Server, addr string, logger *slog.Logger) error {
	handler, closeHandler := newHTTPHandler(server, logger, securityConfigFromEnv())
	defer closeHandler()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// serveMetrics exposes Prometheus metrics while the stdio transport is in use
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	defer recoverPanic(logger, "metrics server")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", "error", err)
	}
}

func securityConfigFromEnv() SecurityConfig {
	config := SecurityConfig{
		AuthToken:   os.Getenv("MCP_AUTH_TOKEN"),
		MaxBodySize: defaultMaxBodySize,
	}
	if n, err := strconv.Atoi(os.Getenv("MCP_RATE_LIMIT")); err == nil && n > 0 {
		config.RateLimit = n
	}
	return config
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func transportName(httpAddr string) string {
	if httpAddr != "" {
		return "http"
	}
	return "stdio"
}
