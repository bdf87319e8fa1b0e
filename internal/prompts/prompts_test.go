package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(t *testing.T, name string) Prompt {
	t.Helper()
	for _, p := range All() {
		if p.Definition().Name == name {
			return p
		}
	}
	t.Fatalf("prompt %s not found", name)
	return Prompt{}
}

func get(t *testing.T, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	t.Helper()
	var req mcp.GetPromptRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return find(t, name).Handle(context.Background(), req)
}

func text(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, result.Messages, 1)
	assert.Equal(t, mcp.RoleUser, result.Messages[0].Role)
	content, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestAll_Names(t *testing.T) {
	var names []string
	for _, p := range All() {
		names = append(names, p.Definition().Name)
	}
	assert.Equal(t, []string{
		"analyze-ticket",
		"draft-ticket-response",
		"analytics-dashboard",
		"search-tickets",
		"analyze-user-workload",
		"agent-performance",
	}, names)
}

func TestTicketPrompts(t *testing.T) {
	result, err := get(t, "analyze-ticket", map[string]string{"ticket_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "Analysis prompt for ticket #42", result.Description)
	assert.Contains(t, text(t, result), "analyze ticket #42")
	assert.Contains(t, text(t, result), "analyze_ticket with ticket_id=42")

	result, err = get(t, "draft-ticket-response", map[string]string{"ticket_id": " 7 "})
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "response to ticket #7")

	for _, args := range []map[string]string{nil, {"ticket_id": "abc"}, {"ticket_id": "-1"}} {
		_, err := get(t, "analyze-ticket", args)
		assert.Error(t, err)
	}
}

func TestSearchPrompt(t *testing.T) {
	result, err := get(t, "search-tickets", map[string]string{"search_criteria": "urgent tickets from last week"})
	require.NoError(t, err)
	assert.Equal(t, "Ticket search prompt for: urgent tickets from last week", result.Description)
	assert.Contains(t, text(t, result), "criteria: urgent tickets from last week")

	_, err = get(t, "search-tickets", map[string]string{"search_criteria": "  "})
	assert.Error(t, err)
}

func TestUserWorkloadPrompt(t *testing.T) {
	result, err := get(t, "analyze-user-workload", map[string]string{"user_id": "100"})
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "user #100")
}

func TestAgentPerformancePrompt(t *testing.T) {
	result, err := get(t, "agent-performance", nil)
	require.NoError(t, err)
	assert.Equal(t, "Agent performance analysis prompt for 7 days", result.Description)
	assert.Contains(t, text(t, result), "days=7")

	result, err = get(t, "agent-performance", map[string]string{"days": "30"})
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "days=30")

	_, err = get(t, "agent-performance", map[string]string{"days": "a week"})
	assert.Error(t, err)
}

func TestAnalyticsDashboardPrompt(t *testing.T) {
	result, err := get(t, "analytics-dashboard", nil)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "get_ticket_counts")
}
