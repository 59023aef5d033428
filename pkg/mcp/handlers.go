package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/page-fetcher/pkg/fetch"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/process"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

// handleFetchPage handles the fetch_page tool
func (s *Server) handleFetchPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	format := request.GetString("format", formatHTML)
	if format != formatHTML && format != formatMarkdown {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q (supported: html, markdown)", format)), nil
	}
	full := request.GetBool("full_content", false) || format == formatMarkdown
	verbose := request.GetBool("verbose", s.cfg.AppConfig.Verbose)

	res, err := s.cfg.Fetcher.Fetch(ctx, models.FetchRequest{
		TargetURL: urlStr,
		Mode:      models.ModeFromFlag(full),
		Verbose:   verbose,
	})
	if err != nil {
		return errorResult(err, verbose), nil
	}

	result := map[string]interface{}{
		"url":         res.URL,
		"request_id":  res.RequestID,
		"duration_ms": res.Duration.Milliseconds(),
	}

	if res.Mode != models.ModeFullContent {
		result["summary"] = res.Summary
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	content := res.HTML
	if format == formatMarkdown {
		content, err = process.ToMarkdown(res.HTML, res.URL)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to convert to markdown: %v", err)), nil
		}
	}
	result["format"] = format
	result["content"] = content
	result["content_length"] = len(content)
	result["token_count"] = s.cfg.Tokens.Count(content)

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCheckURL handles the check_url tool
func (s *Server) handleCheckURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	result := map[string]interface{}{"url": urlStr}

	if _, err := fetch.ValidateURL(urlStr); err != nil {
		result["allowed"] = false
		result["reason"] = models.ErrorKindInvalidInput.String()
		result["message"] = err.Error()
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	addrs, err := s.cfg.Checker.Check(ctx, urlStr)
	if err != nil {
		result["allowed"] = false
		result["reason"] = models.ErrorKindDisallowedHost.String()
		result["message"] = err.Error()
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	resolved := make([]string, 0, len(addrs))
	for _, a := range addrs {
		resolved = append(resolved, a.String())
	}
	result["allowed"] = true
	result["addresses"] = resolved
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// errorResult renders a classified fetch error; detail is gated on verbose
func errorResult(err error, verbose bool) *mcp.CallToolResult {
	fe := utils.Classify(err)
	return mcp.NewToolResultError(formatJSON(map[string]interface{}{
		"error":   fe.Kind.String(),
		"status":  fe.StatusCode(),
		"message": fe.Public(verbose),
	}))
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to format JSON: %v"}`, err)
	}
	return string(b)
}
