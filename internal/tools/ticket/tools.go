// Package ticket provides the MCP tools that read, search and comment on
// Zendesk tickets.
package ticket

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
)

// Per-tool response option specs.
var (
	singleSpec   = output.OptionSpec{}
	listSpec     = output.OptionSpec{MaxLimit: output.AbsoluteMaxLimit}
	fullSpec     = output.OptionSpec{Full: true}
	fullListSpec = output.OptionSpec{MaxLimit: output.AbsoluteMaxLimit, Full: true}
)

// Sort fields accepted by search_tickets.
var sortFields = []string{"created_at", "updated_at", "priority", "status", "ticket_type"}

// RegisterTicketTools registers all ticket tools with the MCP server
func RegisterTicketTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		tool    mcp.Tool
		handler tools.ToolHandler
	}{
		{getTicketTool("get_ticket", "Retrieve a Zendesk ticket by its ID", singleSpec), handleGetTicket(singleSpec)},
		{getTicketTool("get_ticket_full", "Retrieve a Zendesk ticket by its ID with every field and no size bound", fullSpec), handleGetTicket(fullSpec)},
		{commentsTool("get_ticket_comments", "Retrieve the comments of a Zendesk ticket, oldest first", listSpec), handleGetTicketComments(listSpec)},
		{commentsTool("get_ticket_comments_full", "Retrieve the comments of a Zendesk ticket with full bodies and no size bound", fullListSpec), handleGetTicketComments(fullListSpec)},
		{createCommentTool(), handleCreateTicketComment},
		{searchTool("search_tickets", "Search for tickets using Zendesk query syntax. Results are bounded; use compact or summarize for large result sets.", listSpec), handleSearchTickets(listSpec)},
		{searchTool("search_tickets_full", "Search for tickets using Zendesk query syntax and return every field without a size bound", fullListSpec), handleSearchTickets(fullListSpec)},
		{analyzeTool(), handleAnalyzeTicket},
		{countsTool(), handleGetTicketCounts},
		{metricsTool(), handleGetTicketMetrics},
	}

	for _, r := range registrations {
		if err := tools.AddTool(s, sc, r.tool, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func getTicketTool(name, description string, spec output.OptionSpec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithNumber("ticket_id",
			mcp.Required(),
			mcp.Description("The ID of the ticket to retrieve"),
		),
	}
	opts = append(opts, tools.AddOutputParams(spec)...)
	return mcp.NewTool(name, opts...)
}

func commentsTool(name, description string, spec output.OptionSpec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithNumber("ticket_id",
			mcp.Required(),
			mcp.Description("The ID of the ticket to get comments for"),
		),
	}
	opts = append(opts, tools.AddOutputParams(spec)...)
	return mcp.NewTool(name, opts...)
}

func createCommentTool() mcp.Tool {
	return mcp.NewTool("create_ticket_comment",
		mcp.WithDescription("Create a new comment on an existing Zendesk ticket"),
		mcp.WithNumber("ticket_id",
			mcp.Required(),
			mcp.Description("The ID of the ticket to comment on"),
		),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("The comment content; HTML is accepted"),
		),
		mcp.WithBoolean("public",
			mcp.Description("Whether the comment is visible to the requester (default: true)"),
		),
	)
}

func searchTool(name, description string, spec output.OptionSpec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g., 'status:open', 'priority:urgent', 'created>7days'); type:ticket is added when no type is given"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Field to sort by (default: created_at)"),
			mcp.Enum(sortFields...),
		),
		mcp.WithString("sort_order",
			mcp.Description("Sort order (default: desc)"),
			mcp.Enum("asc", "desc"),
		),
	}
	opts = append(opts, tools.AddOutputParams(spec)...)
	return mcp.NewTool(name, opts...)
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool("analyze_ticket",
		mcp.WithDescription("Fetch a ticket, its recent conversation and its metrics in one bounded response"),
		mcp.WithNumber("ticket_id",
			mcp.Required(),
			mcp.Description("The ID of the ticket to analyze"),
		),
		mcp.WithNumber("comment_limit",
			mcp.Description("Number of most recent comments to include (default 5, max 20)"),
		),
		mcp.WithNumber(output.OptMaxBodyLength,
			mcp.Description("Clip the description and comment bodies to this many characters (default 500, 0 disables)"),
		),
		mcp.WithNumber(output.OptMaxLength,
			mcp.Description("Maximum response size in bytes (default 20000, max 100000)"),
		),
	)
}

func countsTool() mcp.Tool {
	return mcp.NewTool("get_ticket_counts",
		mcp.WithDescription("Get counts of tickets by status and priority, plus recent activity"),
	)
}

func metricsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Get ticket metrics. With ticket_id returns that ticket's metrics, otherwise aggregates replies and reopens over tickets created in the last 7 days"),
		mcp.WithNumber("ticket_id",
			mcp.Description("ID of the ticket to get metrics for (optional)"),
		),
	}
	opts = append(opts, tools.AddOutputParams(singleSpec)...)
	return mcp.NewTool("get_ticket_metrics", opts...)
}
