// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fedora-infra/orphanstats/core"
)

// NewMCPServer initializes and configures the orphan stats MCP server without
// starting it. This is exposed for unit testing.
func NewMCPServer(stats *core.Stats) *server.MCPServer {
	s := server.NewMCPServer(
		"Fedora Orphan Stats Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{stats: stats}

	// --- 1. Tool: get_monthly_report ---
	s.AddTool(mcp.NewTool("get_monthly_report",
		mcp.WithDescription("Build the monthly orphan, adoption, retirement and commit report from the local event store."),
		mcp.WithString("start", mcp.Description("First month of the report in YYYY-MM form. Defaults to 2020-08.")),
		mcp.WithString("end", mcp.Description("Last month of the report in YYYY-MM form. Defaults to the current month.")),
	), h.handleGetMonthlyReport)

	// --- 2. Tool: get_month_stats ---
	s.AddTool(mcp.NewTool("get_month_stats",
		mcp.WithDescription("Compute every statistic for a single calendar month."),
		mcp.WithString("month", mcp.Description("The month to report on, in YYYY-MM form."), mcp.Required()),
	), h.handleGetMonthStats)

	return s
}

// StartMCPServer starts the orphan stats MCP server on stdio.
func StartMCPServer(_ context.Context, stats *core.Stats) error {
	s := NewMCPServer(stats)
	return server.ServeStdio(s)
}
