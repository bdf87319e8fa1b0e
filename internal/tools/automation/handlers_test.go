package automation

import (
	"context"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/testdata"
)

func newClient() *testdata.MockZendeskClient {
	client := testdata.NewMockZendeskClient()
	client.Tickets[1] = testdata.Ticket(1, "I was charged twice, please refund my subscription payment", "open", "normal")
	client.Tickets[2] = testdata.Ticket(2, "Cannot log in, password reset fails", "open", "high")
	client.Tickets[3] = testdata.Ticket(3, "The app crashes with an error", "new", "urgent")
	client.Tickets[3]["tags"] = []interface{}{"category_technical"}
	return client
}

func writable() server.Option {
	return server.WithNonDestructiveMode(false)
}

func TestRegisterAutomationTools(t *testing.T) {
	sc := testdata.NewServerContext(t, newClient())
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.1", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterAutomationTools(mcpSrv, sc))

	registered := mcpSrv.ListTools()
	for _, name := range []string{"bulk_update_tickets", "auto_categorize_tickets", "escalate_ticket"} {
		assert.Contains(t, registered, name)
	}
}

func TestHandleBulkUpdateTickets(t *testing.T) {
	args := map[string]interface{}{
		"ticket_ids": []interface{}{float64(1), float64(2), float64(1)},
		"updates": map[string]interface{}{
			"status":      "pending",
			"assignee_id": float64(100),
			"tags":        map[string]interface{}{"action": "add", "values": []interface{}{"vip"}},
		},
		"reason": "Moving to the VIP queue",
	}

	t.Run("blocked in non-destructive mode", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client)

		result, err := handleBulkUpdateTickets(context.Background(), testdata.Request("bulk_update_tickets", args), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testdata.ResultText(t, result), "--allowed-operations=update")
		assert.Empty(t, client.Writes())
	})

	t.Run("dry run", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, server.WithDryRun(true))

		result, err := handleBulkUpdateTickets(context.Background(), testdata.Request("bulk_update_tickets", args), sc)
		require.NoError(t, err)

		plan := testdata.DecodeResult(t, result)
		assert.Equal(t, true, plan["dry_run"])
		assert.Equal(t, []interface{}{float64(1), float64(2)}, plan["ticket_ids"])
		changes := plan["changes"].(map[string]interface{})
		assert.Equal(t, "pending", changes["status"])
		assert.Empty(t, client.Writes())
	})

	t.Run("writes one update_many", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, server.WithAllowedOperations([]string{tools.OpUpdate}))

		result, err := handleBulkUpdateTickets(context.Background(), testdata.Request("bulk_update_tickets", args), sc)
		require.NoError(t, err)

		out := testdata.DecodeResult(t, result)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, float64(2), out["count"])
		assert.Equal(t, "queued", out["job_status"].(map[string]interface{})["status"])

		writes := client.Writes()
		require.Len(t, writes, 1)
		assert.Equal(t, "update_many", writes[0].Op)
		assert.Equal(t, []int64{1, 2}, writes[0].IDs)
		assert.Equal(t, "pending", writes[0].Update.Status)
		assert.Equal(t, int64(100), writes[0].Update.AssigneeID)
		assert.Equal(t, []string{"vip"}, writes[0].Update.AdditionalTags)
		require.NotNil(t, writes[0].Update.Comment)
		assert.False(t, writes[0].Update.Comment.Public)
		assert.Contains(t, writes[0].Update.Comment.Body, "Moving to the VIP queue")
	})
}

func TestHandleBulkUpdateTickets_Validation(t *testing.T) {
	tooMany := make([]interface{}, 0, 101)
	for i := 1; i <= 101; i++ {
		tooMany = append(tooMany, float64(i))
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing ids",
			args:    map[string]interface{}{"updates": map[string]interface{}{"status": "open"}},
			wantErr: "invalid ticket_ids: is required",
		},
		{
			name:    "empty ids",
			args:    map[string]interface{}{"ticket_ids": []interface{}{}, "updates": map[string]interface{}{"status": "open"}},
			wantErr: "invalid ticket_ids: must not be empty",
		},
		{
			name:    "too many ids",
			args:    map[string]interface{}{"ticket_ids": tooMany, "updates": map[string]interface{}{"status": "open"}},
			wantErr: "at most 100 tickets",
		},
		{
			name:    "no changes",
			args:    map[string]interface{}{"ticket_ids": []interface{}{float64(1)}, "updates": map[string]interface{}{}},
			wantErr: "must change at least one",
		},
		{
			name:    "unknown status",
			args:    map[string]interface{}{"ticket_ids": []interface{}{float64(1)}, "updates": map[string]interface{}{"status": "archived"}},
			wantErr: "invalid updates.status",
		},
		{
			name:    "negative assignee",
			args:    map[string]interface{}{"ticket_ids": []interface{}{float64(1)}, "updates": map[string]interface{}{"assignee_id": float64(-3)}},
			wantErr: "invalid updates.assignee_id",
		},
		{
			name: "set with no tags",
			args: map[string]interface{}{"ticket_ids": []interface{}{float64(1)}, "updates": map[string]interface{}{
				"tags": map[string]interface{}{"action": "set", "values": []interface{}{}},
			}},
			wantErr: "must not be empty when action is set",
		},
		{
			name: "tags without action",
			args: map[string]interface{}{"ticket_ids": []interface{}{float64(1)}, "updates": map[string]interface{}{
				"tags": map[string]interface{}{"values": []interface{}{"a"}},
			}},
			wantErr: "invalid updates.tags.action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient()
			sc := testdata.NewServerContext(t, client, writable())

			result, err := handleBulkUpdateTickets(context.Background(), testdata.Request("bulk_update_tickets", tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, testdata.ResultText(t, result), tt.wantErr)
			assert.Empty(t, client.Writes())
		})
	}
}

func TestParseUpdates_TagActions(t *testing.T) {
	remove, err := parseUpdates(map[string]interface{}{"tags": map[string]interface{}{"action": "remove", "values": []interface{}{"old"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, remove.RemoveTags)

	set, err := parseUpdates(map[string]interface{}{"tags": map[string]interface{}{"action": "set", "values": []interface{}{"a", "b"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, set.Tags)
	assert.Empty(t, set.AdditionalTags)
}

func TestHandleAutoCategorizeTickets(t *testing.T) {
	t.Run("explicit ids with rules", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client)

		result, err := handleAutoCategorizeTickets(context.Background(), testdata.Request("auto_categorize_tickets", map[string]interface{}{
			"ticket_ids": []interface{}{float64(1), float64(2), float64(99)},
			"use_ml":     false,
		}), sc)
		require.NoError(t, err)

		report := testdata.DecodeResult(t, result)
		assert.Equal(t, "rules", report["method"])
		assert.Equal(t, false, report["applied"])
		assert.Equal(t, float64(2), report["analyzed"])
		assert.Equal(t, []interface{}{"ticket 99 not found"}, report["warnings"])

		tickets := report["tickets"].([]interface{})
		require.Len(t, tickets, 2)
		first := tickets[0].(map[string]interface{})
		assert.Equal(t, "billing", first["category"])
		assert.Equal(t, "category_billing", first["tag"])
		assert.Equal(t, "account", tickets[1].(map[string]interface{})["category"])
		assert.Empty(t, client.Writes())
	})

	t.Run("defaults to the configured categorizer", func(t *testing.T) {
		sc := testdata.NewServerContext(t, newClient())

		result, err := handleAutoCategorizeTickets(context.Background(), testdata.Request("auto_categorize_tickets", nil), sc)
		require.NoError(t, err)

		report := testdata.DecodeResult(t, result)
		assert.Equal(t, "bayes", report["method"])
		// ticket 3 already carries a category tag
		assert.Equal(t, float64(2), report["analyzed"])
	})

	t.Run("apply is gated", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client)

		result, err := handleAutoCategorizeTickets(context.Background(), testdata.Request("auto_categorize_tickets", map[string]interface{}{"apply": true}), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.NotContains(t, client.Calls(), "Search")
	})

	t.Run("apply tags per category", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, server.WithAllowedOperations([]string{tools.OpCategorize}))

		result, err := handleAutoCategorizeTickets(context.Background(), testdata.Request("auto_categorize_tickets", map[string]interface{}{
			"ticket_ids": []interface{}{float64(1), float64(2)},
			"use_ml":     false,
			"apply":      true,
		}), sc)
		require.NoError(t, err)

		report := testdata.DecodeResult(t, result)
		assert.Equal(t, true, report["applied"])
		assert.Len(t, report["jobs"], 2)

		writes := client.Writes()
		require.Len(t, writes, 2)
		assert.Equal(t, []string{"category_account"}, writes[0].Update.AdditionalTags)
		assert.Equal(t, []int64{2}, writes[0].IDs)
		assert.Equal(t, []string{"category_billing"}, writes[1].Update.AdditionalTags)
		assert.Equal(t, []int64{1}, writes[1].IDs)
	})

	t.Run("dry run lists the tags", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, server.WithDryRun(true))

		result, err := handleAutoCategorizeTickets(context.Background(), testdata.Request("auto_categorize_tickets", map[string]interface{}{
			"ticket_ids": []interface{}{float64(1)},
			"use_ml":     false,
			"apply":      true,
		}), sc)
		require.NoError(t, err)

		plan := testdata.DecodeResult(t, result)
		assert.Equal(t, true, plan["dry_run"])
		assert.Equal(t, map[string]interface{}{"category_billing": []interface{}{float64(1)}}, plan["changes"])
		assert.Empty(t, client.Writes())
	})
}

func TestHandleEscalateTicket(t *testing.T) {
	args := func(level string, notify bool) map[string]interface{} {
		return map[string]interface{}{
			"ticket_id":           float64(1),
			"escalation_level":    level,
			"reason":              "Customer threatens to churn",
			"notify_stakeholders": notify,
		}
	}

	t.Run("blocked in non-destructive mode", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client)

		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", args(levelManager, true)), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Empty(t, client.Calls())
	})

	t.Run("manager raises to urgent and notifies", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, writable())

		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", args(levelManager, true)), sc)
		require.NoError(t, err)

		out := testdata.DecodeResult(t, result)
		assert.Equal(t, "normal", out["previous_priority"])
		assert.Equal(t, "urgent", out["priority"])
		assert.Equal(t, true, out["stakeholders_flagged"])

		writes := client.Writes()
		require.Len(t, writes, 1)
		update := writes[0].Update
		assert.Equal(t, "urgent", update.Priority)
		assert.Equal(t, []string{"escalated_manager", notifyTag}, update.AdditionalTags)
		require.NotNil(t, update.Comment)
		assert.False(t, update.Comment.Public)
		assert.Contains(t, update.Comment.Body, "Escalated to manager: Customer threatens to churn")
	})

	t.Run("senior agent never lowers priority", func(t *testing.T) {
		client := newClient()
		client.Tickets[1]["priority"] = "urgent"
		sc := testdata.NewServerContext(t, client, writable())

		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", args(levelSeniorAgent, false)), sc)
		require.NoError(t, err)

		out := testdata.DecodeResult(t, result)
		assert.Equal(t, "urgent", out["priority"])

		update := client.Writes()[0].Update
		assert.Empty(t, update.Priority)
		assert.Equal(t, []string{"escalated_senior_agent"}, update.AdditionalTags)
		assert.NotContains(t, update.Comment.Body, "Stakeholders")
	})

	t.Run("dry run", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, server.WithDryRun(true))

		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", args(levelExternal, true)), sc)
		require.NoError(t, err)

		plan := testdata.DecodeResult(t, result)
		assert.Equal(t, tools.OpEscalate, plan["operation"])
		assert.Equal(t, "urgent", plan["changes"].(map[string]interface{})["priority"])
		assert.Empty(t, client.Writes())
	})

	t.Run("invalid level", func(t *testing.T) {
		sc := testdata.NewServerContext(t, newClient(), writable())

		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", args("ceo", true)), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testdata.ResultText(t, result), "invalid escalation_level")
	})

	t.Run("unknown ticket", func(t *testing.T) {
		client := newClient()
		sc := testdata.NewServerContext(t, client, writable())

		a := args(levelManager, true)
		a["ticket_id"] = float64(42)
		result, err := handleEscalateTicket(context.Background(), testdata.Request("escalate_ticket", a), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testdata.ResultText(t, result), "42")
		assert.Empty(t, client.Writes())
	})
}

func TestRaisePriority(t *testing.T) {
	assert.Equal(t, "high", raisePriority("", "high"))
	assert.Equal(t, "high", raisePriority("low", "high"))
	assert.Equal(t, "urgent", raisePriority("urgent", "high"))
	assert.Equal(t, "urgent", raisePriority("high", "urgent"))
	assert.Equal(t, "high", raisePriority("bogus", "high"))
}
