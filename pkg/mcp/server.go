package mcp

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/process"
)

const (
	serverName    = "page-fetcher"
	serverVersion = "1.0.0"
)

// Fetcher performs a single safe fetch. *orchestrate.Orchestrator satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResult, error)
}

// HostChecker runs the host safety check alone. *fetch.HostSafetyChecker satisfies it.
type HostChecker interface {
	Check(ctx context.Context, rawURL string) ([]netip.Addr, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig *config.AppConfig
	Fetcher   Fetcher
	Checker   HostChecker
	Tokens    *process.TokenCounter // optional; nil falls back to an estimate
	Transport string                // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server wraps the MCP server with the page fetch tools
type Server struct {
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	cfg       *ServerConfig
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Fetcher == nil || cfg.Checker == nil {
		return nil, fmt.Errorf("Fetcher and Checker are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// fetch_page - Render a URL and return its summary or full content
	fetchPageTool := mcp.NewTool("fetch_page",
		mcp.WithDescription("Render a public web page in a headless browser and return its title, meta description and first heading, or its full content"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL to fetch. Hosts resolving to private or loopback addresses are refused."),
		),
		mcp.WithBoolean("full_content",
			mcp.Description("Return the full rendered content instead of the summary fields"),
		),
		mcp.WithString("format",
			mcp.Description("Format of full content (default: html)"),
			mcp.Enum(formatHTML, formatMarkdown),
		),
		mcp.WithBoolean("verbose",
			mcp.Description("Include the underlying error detail on navigation or internal failures"),
		),
	)
	s.mcpServer.AddTool(fetchPageTool, s.handleFetchPage)

	// check_url - Run the host safety check without rendering
	checkURLTool := mcp.NewTool("check_url",
		mcp.WithDescription("Check whether a URL may be fetched: validates the scheme and resolves the host, refusing private, loopback and link-local addresses"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to check"),
		),
	)
	s.mcpServer.AddTool(checkURLTool, s.handleCheckURL)

	s.log.Infof("Registered %d MCP tools", 2)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio", "":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		s.sseServer = server.NewSSEServer(s.mcpServer)
		return s.sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
