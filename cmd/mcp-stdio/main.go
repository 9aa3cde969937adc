package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/providentiaww/trilix-mixpanel-mcp/internal/config"
	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
	"github.com/providentiaww/trilix-mixpanel-mcp/internal/tools"
	"github.com/providentiaww/trilix-mixpanel-mcp/pkg/mcp"
)

const ServiceVersion = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnv(ctx, "../../.env")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := mixpanel.NewClient(cfg.Credentials, cfg.ClientOptions()...)
	registry := tools.NewRegistry(cfg.Credentials.ProjectID)
	if err := tools.RegisterMixpanelTools(registry, client); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register tools: %v\n", err)
		os.Exit(1)
	}

	server := mcp.NewServer("mixpanel", ServiceVersion)
	for _, tool := range registry.Tools() {
		server.RegisterTool(tool)
	}

	fmt.Fprintf(os.Stderr, "Mixpanel MCP server running on stdio (project %s, %s)\n", cfg.Credentials.ProjectID, client.BaseURL())
	if err := server.Start(ctx, registry.HandleTool); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
