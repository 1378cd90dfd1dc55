package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-signer/internal/assign"
	"github.com/a3tai/mcp-pdf-signer/internal/config"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/logging"
	"github.com/a3tai/mcp-pdf-signer/internal/mcp"
	"github.com/a3tai/mcp-pdf-signer/internal/observability/metrics"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-signer/internal/stage"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newServer wires the roster, handoff store, metrics and flow behind the MCP
// tool server
func newServer(cfg *config.Config, logger *slog.Logger) (*mcp.Server, error) {
	roster, err := assign.LoadRoster(cfg.RosterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	resolver, err := security.NewPathValidator(cfg.DocumentDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to set up document directory: %w", err)
	}

	m := metrics.NewFlowMetrics(cfg.ServerName)
	flow := stage.NewFlow(stage.Deps{
		Store:     handoff.NewStore(),
		Selection: assign.NewSelection(roster),
		Logger:    logger,
		Metrics:   m,
		Viewer: viewer.Options{
			MaxFileSize: cfg.MaxFileSize,
			Resolver:    resolver,
			CurrentUser: cfg.CurrentUser,
			Logger:      logger,
		},
		FieldWidth:      cfg.FieldWidth,
		FieldHeight:     cfg.FieldHeight,
		OutputDirectory: cfg.OutputDirectory,
	})

	logger.Info("signing flow ready",
		"assignees", len(roster.List()),
		"document_directory", cfg.DocumentDirectory,
		"output_directory", cfg.OutputDirectory)

	return mcp.NewServer(cfg, flow, m, logger)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	// Logs always go to stderr so that stdio mode keeps stdout for the protocol
	logger := logging.New(cfg.ServerName, cfg.LogLevel, os.Stderr)
	logger.Debug("starting with configuration", "config", cfg.String())

	server, err := newServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Signer\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
