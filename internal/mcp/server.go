package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a3tai/mcp-pdf-signer/internal/config"
	"github.com/a3tai/mcp-pdf-signer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-signer/internal/logging"
	"github.com/a3tai/mcp-pdf-signer/internal/observability/metrics"
	"github.com/a3tai/mcp-pdf-signer/internal/stage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	flow      *stage.Flow
	metrics   *metrics.FlowMetrics
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance exposing the signing flow as
// tools. Metrics and logger may be nil.
func NewServer(cfg *config.Config, flow *stage.Flow, m *metrics.FlowMetrics, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if flow == nil {
		return nil, errors.New("flow cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		flow:      flow,
		metrics:   m,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Prepare step
	s.addTool(mcp.NewTool(
		"document_load",
		mcp.WithDescription(descriptions.DocumentLoadDescription),
		mcp.WithString("path",
			mcp.Description("Path to the PDF, relative to the document directory or absolute within it"),
		),
		mcp.WithString("content_base64",
			mcp.Description("PDF bytes, base64 encoded. Takes precedence over path."),
		),
	), s.handleDocumentLoad)

	s.addTool(mcp.NewTool(
		"assignee_select",
		mcp.WithDescription(descriptions.AssigneeSelectDescription),
		mcp.WithString("email",
			mcp.Description("Roster email of the signer. Empty lists the roster."),
		),
	), s.handleAssigneeSelect)

	s.addTool(mcp.NewTool(
		"field_add",
		mcp.WithDescription(descriptions.FieldAddDescription),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Field kind: "+kindList()),
		),
		mcp.WithString("value",
			mcp.Description("Initial value of the field"),
		),
		mcp.WithNumber("x",
			mcp.Description("Drop point x in window coordinates. Omit x and y to center on the current page."),
		),
		mcp.WithNumber("y",
			mcp.Description("Drop point y in window coordinates"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page to show before placing, 1-based"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Zoom level to set before placing"),
		),
	), s.handleFieldAdd)

	s.addTool(mcp.NewTool(
		"field_move",
		mcp.WithDescription(descriptions.FieldMoveDescription),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Placeholder id as reported by field_add"),
		),
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("New center x in window coordinates"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("New center y in window coordinates"),
		),
	), s.handleFieldMove)

	s.addTool(mcp.NewTool(
		"document_prepare",
		mcp.WithDescription(descriptions.DocumentPrepareDescription),
	), s.handleDocumentPrepare)

	// Sign step
	s.addTool(mcp.NewTool(
		"sign_start",
		mcp.WithDescription(descriptions.SignStartDescription),
	), s.handleSignStart)

	s.addTool(mcp.NewTool(
		"sign_field_fill",
		mcp.WithDescription(descriptions.SignFieldFillDescription),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Full field name"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Value to enter"),
		),
	), s.handleSignFieldFill)

	s.addTool(mcp.NewTool(
		"sign_field_next",
		mcp.WithDescription(descriptions.SignFieldNextDescription),
	), s.handleSignFieldNext)

	s.addTool(mcp.NewTool(
		"sign_field_prev",
		mcp.WithDescription(descriptions.SignFieldPrevDescription),
	), s.handleSignFieldPrev)

	s.addTool(mcp.NewTool(
		"sign_complete",
		mcp.WithDescription(descriptions.SignCompleteDescription),
	), s.handleSignComplete)

	// View step
	s.addTool(mcp.NewTool(
		"view_start",
		mcp.WithDescription(descriptions.ViewStartDescription),
	), s.handleViewStart)

	s.addTool(mcp.NewTool(
		"view_inspect",
		mcp.WithDescription(descriptions.ViewInspectDescription),
	), s.handleViewInspect)

	s.addTool(mcp.NewTool(
		"view_download",
		mcp.WithDescription(descriptions.ViewDownloadDescription),
	), s.handleViewDownload)

	s.addTool(mcp.NewTool(
		"view_done",
		mcp.WithDescription(descriptions.ViewDoneDescription),
	), s.handleViewDone)

	// Flow
	s.addTool(mcp.NewTool(
		"flow_reset",
		mcp.WithDescription(descriptions.FlowResetDescription),
	), s.handleFlowReset)

	s.addTool(mcp.NewTool(
		"flow_status",
		mcp.WithDescription(descriptions.FlowStatusDescription),
	), s.handleFlowStatus)
}

// addTool registers a tool whose calls are timed and counted
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	name := tool.Name
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)
		failed := err != nil || (result != nil && result.IsError)
		s.metrics.ObserveToolCall(name, time.Since(start), failed)
		s.logger.Debug("tool call", "tool", name, "failed", failed, "duration", time.Since(start))
		return result, err
	})
}

// Run starts the MCP server
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves the protocol over stdin and stdout
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Info("starting signer in stdio mode", "document_directory", s.config.DocumentDirectory)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the protocol over SSE alongside the metrics endpoint
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	mux := http.NewServeMux()
	mux.Handle(s.config.MetricsPath, s.metrics.Handler())
	mux.Handle("/", sse)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting signer in server mode", "address", addr, "metrics_path", s.config.MetricsPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("sse shutdown", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
