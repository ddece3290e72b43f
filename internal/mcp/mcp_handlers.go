package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fedora-infra/orphanstats/core"
	"github.com/fedora-infra/orphanstats/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	stats *core.Stats
}

func (h *toolHandler) handleGetMonthlyReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := core.DefaultReportStart
	if v := request.GetString("start", ""); v != "" {
		m, err := schema.ParseMonth(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start month: %v", err)), nil
		}
		start = m
	}

	end := time.Now().UTC()
	if v := request.GetString("end", ""); v != "" {
		m, err := schema.ParseMonth(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid end month: %v", err)), nil
		}
		end = m.Start()
	}

	report, err := core.BuildReport(ctx, h.stats, start, end, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetMonthStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := schema.ParseMonth(request.GetString("month", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid month: %v", err)), nil
	}

	row, err := h.stats.MonthRow(ctx, m)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(row, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
