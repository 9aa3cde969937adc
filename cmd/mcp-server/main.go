package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/providentiaww/trilix-mixpanel-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/trilix-mixpanel-mcp/internal/config"
	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
	"github.com/providentiaww/trilix-mixpanel-mcp/internal/tools"
	"github.com/providentiaww/trilix-mixpanel-mcp/pkg/mcp"
)

const ServiceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnv(ctx, "../../.env")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "[mcp-server] ", log.LstdFlags)

	client := mixpanel.NewClient(cfg.Credentials, cfg.ClientOptions()...)
	registry := tools.NewRegistry(cfg.Credentials.ProjectID)
	if err := tools.RegisterMixpanelTools(registry, client); err != nil {
		logger.Fatalf("Failed to register tools: %v", err)
	}

	server := mcp.NewServer("mixpanel", ServiceVersion)
	for _, tool := range registry.Tools() {
		server.RegisterTool(tool)
	}
	server.SetHandler(registry.HandleTool)

	authMiddleware := auth.NewAuthMiddleware(auth.VerifierFromEnv())
	if !authMiddleware.Enabled() {
		logger.Println("Warning: neither MCP_JWT_SECRET nor MCP_SERVICE_TOKEN_HASH is set")
		logger.Println("Running in development mode without authentication")
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newRouter(server, authMiddleware),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("Starting Mixpanel MCP server on port %d (project %s, %s)", cfg.HTTPPort, cfg.Credentials.ProjectID, client.BaseURL())
		logger.Printf("   - Health: http://localhost:%d/health", cfg.HTTPPort)
		logger.Printf("   - Tools:  http://localhost:%d/tools", cfg.HTTPPort)
		logger.Printf("   - SSE:    http://localhost:%d/sse", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Server stopped")
}

// newRouter mounts the REST and SSE transports. /health stays open.
func newRouter(server *mcp.Server, authMiddleware *auth.AuthMiddleware) http.Handler {
	protected := http.NewServeMux()
	mcp.NewHTTPServer(server).Routes(protected)
	mcp.NewSSEServer(server).Routes(protected)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.Handle("/", authMiddleware.Handler(protected))

	return mcp.CORS(mux)
}
