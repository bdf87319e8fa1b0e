// Package tools provides shared utilities for MCP tool handlers.
package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giantswarm/mcp-zendesk/internal/server"
)

// Mutating operations, as listed in --allowed-operations.
const (
	OpComment    = "comment"
	OpUpdate     = "update"
	OpCategorize = "categorize"
	OpEscalate   = "escalate"
)

// IsMutatingCall reports whether a call to tool with args writes to Zendesk.
func IsMutatingCall(tool string, args map[string]interface{}) bool {
	switch tool {
	case "create_ticket_comment", "bulk_update_tickets", "escalate_ticket":
		return true
	case "auto_categorize_tickets":
		apply, _ := args["apply"].(bool)
		return apply
	}
	return false
}

// CheckMutatingOperation verifies if a mutating operation is allowed given the current
// server configuration. Returns an error result if blocked, nil if allowed.
//
// Operations are allowed if:
//   - NonDestructiveMode is disabled, OR
//   - DryRun mode is enabled (the change is described but not sent), OR
//   - The operation is explicitly listed in AllowedOperations
func CheckMutatingOperation(sc *server.ServerContext, operation string) *mcp.CallToolResult {
	config := sc.Config()
	if !config.NonDestructiveMode || config.DryRun {
		return nil
	}

	for _, op := range config.AllowedOperations {
		if op == operation {
			return nil
		}
	}

	return mcp.NewToolResultError(fmt.Sprintf(
		"%s operations are not allowed in non-destructive mode (use --dry-run to preview, or --allowed-operations=%s to permit)",
		cases.Title(language.English).String(operation), operation,
	))
}

// DryRunPlan is returned instead of writing when the server runs with --dry-run.
type DryRunPlan struct {
	DryRun    bool        `json:"dry_run"`
	Operation string      `json:"operation"`
	TicketIDs []int64     `json:"ticket_ids"`
	Changes   interface{} `json:"changes"`
}

// DryRunResult reports the change a mutating call would make, or nil when
// dry-run is off.
func DryRunResult(sc *server.ServerContext, operation string, ticketIDs []int64, changes interface{}) (*mcp.CallToolResult, error) {
	if !sc.Config().DryRun {
		return nil, nil
	}
	return JSONResult(DryRunPlan{
		DryRun:    true,
		Operation: operation,
		TicketIDs: ticketIDs,
		Changes:   changes,
	})
}
