// Package analytics provides MCP tools that aggregate tickets, ratings and
// agent activity into bounded reports.
package analytics

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
)

var reportSpec = output.OptionSpec{MaxLimit: output.AbsoluteMaxLimit}

// RegisterAnalyticsTools registers the analytics tools with the MCP server
func RegisterAnalyticsTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// get_satisfaction_ratings tool
	ratingsOpts := []mcp.ToolOption{
		mcp.WithDescription("Get customer satisfaction ratings with their score distribution"),
		mcp.WithNumber("window",
			mcp.Description("Number of most recent ratings to analyze (default 100, max 1000)"),
		),
	}
	ratingsOpts = append(ratingsOpts, tools.AddOutputParams(reportSpec)...)
	if err := tools.AddTool(s, sc, mcp.NewTool("get_satisfaction_ratings", ratingsOpts...), handleGetSatisfactionRatings); err != nil {
		return err
	}

	// get_agent_performance tool
	performanceOpts := []mcp.ToolOption{
		mcp.WithDescription("Get agent performance for a time period: tickets solved per agent and a priority score (urgent=4, high=3, normal=2, low=1). Agents are ordered by tickets solved."),
		mcp.WithNumber("days",
			mcp.Description("Number of days to analyze (default 7, 1 to 90)"),
		),
	}
	performanceOpts = append(performanceOpts, tools.AddOutputParams(reportSpec)...)
	if err := tools.AddTool(s, sc, mcp.NewTool("get_agent_performance", performanceOpts...), handleGetAgentPerformance); err != nil {
		return err
	}

	// get_agent_workload_analysis tool
	workloadOpts := []mcp.ToolOption{
		mcp.WithDescription("Analyze the current distribution of unsolved tickets across agents and flag overloaded agents"),
		mcp.WithBoolean("include_open",
			mcp.Description("Include open tickets (default: true)"),
		),
		mcp.WithBoolean("include_pending",
			mcp.Description("Include pending and on-hold tickets (default: true)"),
		),
	}
	workloadOpts = append(workloadOpts, tools.AddOutputParams(reportSpec)...)
	return tools.AddTool(s, sc, mcp.NewTool("get_agent_workload_analysis", workloadOpts...), handleGetAgentWorkload)
}
