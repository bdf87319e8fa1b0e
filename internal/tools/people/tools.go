// Package people provides MCP tools for Zendesk users and organizations.
package people

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

var (
	userSpec    = output.OptionSpec{}
	ticketsSpec = output.OptionSpec{MaxLimit: output.AbsoluteMaxLimit}
)

// RegisterPeopleTools registers the user and organization tools with the MCP server
func RegisterPeopleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// get_user_by_id tool
	userOpts := []mcp.ToolOption{
		mcp.WithDescription("Get user information by user ID. Useful for resolving agent and requester IDs to names."),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("The ID of the user to retrieve"),
		),
	}
	userOpts = append(userOpts, tools.AddOutputParams(userSpec)...)
	if err := tools.AddTool(s, sc, mcp.NewTool("get_user_by_id", userOpts...), handleGetUser); err != nil {
		return err
	}

	// get_user_tickets tool
	userTicketsOpts := []mcp.ToolOption{
		mcp.WithDescription("Get tickets for a specific user (requested, assigned, or CC'd)"),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("The ID of the user"),
		),
		mcp.WithString("ticket_type",
			mcp.Description("Which of the user's tickets to list (default: requested)"),
			mcp.Enum(string(zendesk.TicketsRequested), string(zendesk.TicketsAssigned), string(zendesk.TicketsCCd)),
		),
	}
	userTicketsOpts = append(userTicketsOpts, tools.AddOutputParams(ticketsSpec)...)
	if err := tools.AddTool(s, sc, mcp.NewTool("get_user_tickets", userTicketsOpts...), handleGetUserTickets); err != nil {
		return err
	}

	// get_organization_tickets tool
	orgOpts := []mcp.ToolOption{
		mcp.WithDescription("Get the tickets of an organization"),
		mcp.WithNumber("organization_id",
			mcp.Required(),
			mcp.Description("The ID of the organization"),
		),
	}
	orgOpts = append(orgOpts, tools.AddOutputParams(ticketsSpec)...)
	return tools.AddTool(s, sc, mcp.NewTool("get_organization_tickets", orgOpts...), handleGetOrganizationTickets)
}
