package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	pflog "github.com/Sriram-PR/page-fetcher/pkg/log"
	"github.com/Sriram-PR/page-fetcher/pkg/mcp"
	"github.com/Sriram-PR/page-fetcher/pkg/process"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults when empty)")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: page-fetcher mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  page-fetcher mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  page-fetcher mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  fetch_page  Render a URL and return its summary or full content
  check_url   Run the host safety check for a URL
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, os.Stderr)
	os.Exit(exitCode)
}

// newMcpServer builds the MCP server from a config file. Logs go to stderr since
// the stdio transport owns stdout.
func newMcpServer(configPath, transport string, port int, logLevel string, stderr io.Writer) (*mcp.Server, *logrus.Logger, error) {
	if _, err := logrus.ParseLevel(logLevel); err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %s", logLevel)
	}
	log := pflog.New(logLevel, stderr)

	appCfg, err := loadAndValidateConfig(configPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	o, checker, err := newOrchestrator(appCfg, log)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := process.NewTokenCounter(appCfg.TokenizerEncoding)
	if err != nil {
		log.Warnf("Tokenizer unavailable, estimating token counts: %v", err)
	}

	server, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig: appCfg,
		Fetcher:   o,
		Checker:   checker,
		Tokens:    tokens,
		Transport: transport,
		Port:      port,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating MCP server: %w", err)
	}
	return server, log, nil
}

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(configPath, transport string, port int, logLevel string, stderr io.Writer) int {
	server, log, err := newMcpServer(configPath, transport, port, logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(log)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting MCP server (transport: %s)", transport)

	if err := server.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
