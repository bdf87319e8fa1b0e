// Package automation provides the MCP tools that change tickets in bulk:
// bulk updates, categorization and escalation. All of them are mutating and
// go through the non-destructive mode and dry-run checks.
package automation

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// RegisterAutomationTools registers the automation tools with the MCP server
func RegisterAutomationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// bulk_update_tickets tool
	bulkUpdateTool := mcp.NewTool("bulk_update_tickets",
		mcp.WithDescription("Apply the same status, priority, assignment or tag change to up to 100 tickets at once"),
		mcp.WithArray("ticket_ids",
			mcp.Required(),
			mcp.Description("IDs of the tickets to update (max 100)"),
			mcp.Items(map[string]any{"type": "integer"}),
			mcp.MaxItems(zendesk.MaxShowMany),
		),
		mcp.WithObject("updates",
			mcp.Required(),
			mcp.Description("Changes to apply to every ticket: status, priority, assignee_id, group_id and tags ({action: add|remove|set, values: [...]})"),
			mcp.Properties(map[string]any{
				"status":      map[string]any{"type": "string", "enum": updatableStatuses},
				"priority":    map[string]any{"type": "string", "enum": priorities},
				"assignee_id": map[string]any{"type": "integer"},
				"group_id":    map[string]any{"type": "integer"},
				"tags": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action": map[string]any{"type": "string", "enum": []string{tagsAdd, tagsRemove, tagsSet}},
						"values": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"action", "values"},
				},
			}),
		),
		mcp.WithString("reason",
			mcp.Description("Reason for the update, added to every ticket as an internal note"),
		),
	)
	if err := tools.AddTool(s, sc, bulkUpdateTool, handleBulkUpdateTickets); err != nil {
		return err
	}

	// auto_categorize_tickets tool
	categorizeTool := mcp.NewTool("auto_categorize_tickets",
		mcp.WithDescription("Categorize tickets from their subject and description. With apply=true the category is added to each ticket as a category_<name> tag."),
		mcp.WithArray("ticket_ids",
			mcp.Description("IDs of the tickets to categorize (max 100). Without ids, recent tickets that carry no category tag are used."),
			mcp.Items(map[string]any{"type": "integer"}),
			mcp.MaxItems(zendesk.MaxShowMany),
		),
		mcp.WithBoolean("use_ml",
			mcp.Description("Use the statistical classifier (true) or keyword rules (false). Defaults to the server's configured categorizer."),
		),
		mcp.WithBoolean("apply",
			mcp.Description("Tag the tickets with their category (default: false)"),
		),
	)
	if err := tools.AddTool(s, sc, categorizeTool, handleAutoCategorizeTickets); err != nil {
		return err
	}

	// escalate_ticket tool
	escalateTool := mcp.NewTool("escalate_ticket",
		mcp.WithDescription("Escalate a ticket: raise its priority, tag it escalated_<level> and record the reason as an internal note"),
		mcp.WithNumber("ticket_id",
			mcp.Required(),
			mcp.Description("The ID of the ticket to escalate"),
		),
		mcp.WithString("escalation_level",
			mcp.Required(),
			mcp.Description("Level to escalate to"),
			mcp.Enum(escalationLevels...),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Reason for the escalation"),
		),
		mcp.WithBoolean("notify_stakeholders",
			mcp.Description("Flag the escalation for stakeholder follow-up (default: true)"),
		),
	)
	return tools.AddTool(s, sc, escalateTool, handleEscalateTicket)
}
