// Package prompts implements the MCP prompts of the Zendesk server.
//
// Prompts are user-triggered workflows: each one renders instructions that
// tell the model which tools to call and how to present the result.
package prompts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const defaultPerformanceDays = 7

// Prompt is one MCP prompt with its renderer.
type Prompt struct {
	definition mcp.Prompt
	render     func(args map[string]string) (description, text string, err error)
}

// Definition returns the MCP prompt definition for registration.
func (p Prompt) Definition() mcp.Prompt {
	return p.definition
}

// Handle renders the prompt for req.
func (p Prompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	if args == nil {
		args = map[string]string{}
	}

	description, text, err := p.render(args)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", p.definition.Name, err)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}

// All returns every prompt in registration order.
func All() []Prompt {
	return []Prompt{
		{
			definition: mcp.NewPrompt("analyze-ticket",
				mcp.WithPromptDescription("Analyze a Zendesk ticket and provide insights"),
				mcp.WithArgument("ticket_id",
					mcp.ArgumentDescription("The ID of the ticket to analyze"),
					mcp.RequiredArgument(),
				),
			),
			render: func(args map[string]string) (string, string, error) {
				id, err := positiveInt(args, "ticket_id")
				if err != nil {
					return "", "", err
				}
				return fmt.Sprintf("Analysis prompt for ticket #%d", id), fmt.Sprintf(ticketAnalysisTemplate, id, id), nil
			},
		},
		{
			definition: mcp.NewPrompt("draft-ticket-response",
				mcp.WithPromptDescription("Draft a professional response to a Zendesk ticket"),
				mcp.WithArgument("ticket_id",
					mcp.ArgumentDescription("The ID of the ticket to respond to"),
					mcp.RequiredArgument(),
				),
			),
			render: func(args map[string]string) (string, string, error) {
				id, err := positiveInt(args, "ticket_id")
				if err != nil {
					return "", "", err
				}
				return fmt.Sprintf("Response draft prompt for ticket #%d", id), fmt.Sprintf(commentDraftTemplate, id), nil
			},
		},
		{
			definition: mcp.NewPrompt("analytics-dashboard",
				mcp.WithPromptDescription("Create a comprehensive analytics dashboard with ticket metrics, counts, and satisfaction data"),
			),
			render: func(map[string]string) (string, string, error) {
				return "Analytics dashboard creation prompt with comprehensive metrics", analyticsDashboardTemplate, nil
			},
		},
		{
			definition: mcp.NewPrompt("search-tickets",
				mcp.WithPromptDescription("Search for tickets using specific criteria with guided query syntax"),
				mcp.WithArgument("search_criteria",
					mcp.ArgumentDescription("Description of what tickets to search for (e.g., 'high priority open tickets', 'urgent tickets from last week')"),
					mcp.RequiredArgument(),
				),
			),
			render: func(args map[string]string) (string, string, error) {
				criteria := strings.TrimSpace(args["search_criteria"])
				if criteria == "" {
					return "", "", fmt.Errorf("missing required argument search_criteria")
				}
				return "Ticket search prompt for: " + criteria, fmt.Sprintf(ticketSearchTemplate, criteria), nil
			},
		},
		{
			definition: mcp.NewPrompt("analyze-user-workload",
				mcp.WithPromptDescription("Analyze workload and ticket distribution for a specific user/agent"),
				mcp.WithArgument("user_id",
					mcp.ArgumentDescription("The ID of the user to analyze workload for"),
					mcp.RequiredArgument(),
				),
			),
			render: func(args map[string]string) (string, string, error) {
				id, err := positiveInt(args, "user_id")
				if err != nil {
					return "", "", err
				}
				return fmt.Sprintf("Workload analysis prompt for user #%d", id), fmt.Sprintf(userWorkloadTemplate, id), nil
			},
		},
		{
			definition: mcp.NewPrompt("agent-performance",
				mcp.WithPromptDescription("Analyze support agent performance metrics over a specified time period"),
				mcp.WithArgument("days",
					mcp.ArgumentDescription("Number of days to analyze (default: 7)"),
				),
			),
			render: func(args map[string]string) (string, string, error) {
				days := defaultPerformanceDays
				if strings.TrimSpace(args["days"]) != "" {
					n, err := positiveInt(args, "days")
					if err != nil {
						return "", "", err
					}
					days = n
				}
				return fmt.Sprintf("Agent performance analysis prompt for %d days", days), fmt.Sprintf(agentPerformanceTemplate, days, days), nil
			},
		},
	}
}

// RegisterPrompts registers every prompt with the MCP server.
func RegisterPrompts(s *mcpserver.MCPServer) {
	for _, p := range All() {
		s.AddPrompt(p.Definition(), p.Handle)
	}
}

func positiveInt(args map[string]string, key string) (int, error) {
	raw := strings.TrimSpace(args[key])
	if raw == "" {
		return 0, fmt.Errorf("missing required argument %s", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("argument %s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
