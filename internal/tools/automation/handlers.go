package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// Statuses a ticket can be moved to through the API. Closed tickets are
// closed by Zendesk itself.
var updatableStatuses = []string{"new", "open", "pending", "hold", "solved"}

var priorities = []string{"low", "normal", "high", "urgent"}

// Tag actions of bulk_update_tickets.
const (
	tagsAdd    = "add"
	tagsRemove = "remove"
	tagsSet    = "set"
)

// Escalation levels.
const (
	levelSeniorAgent = "senior_agent"
	levelManager     = "manager"
	levelExternal    = "external"
)

var escalationLevels = []string{levelManager, levelSeniorAgent, levelExternal}

// escalationPriority is the lowest priority a ticket has after escalating
// to a level. Escalation never lowers a priority.
var escalationPriority = map[string]string{
	levelSeniorAgent: "high",
	levelManager:     "urgent",
	levelExternal:    "urgent",
}

// notifyTag marks escalations that stakeholders should be told about.
// Triggers in the Zendesk account can key off it.
const notifyTag = "escalation_notify_stakeholders"

// BulkUpdateResult is the result of bulk_update_tickets.
type BulkUpdateResult struct {
	Success   bool                 `json:"success"`
	TicketIDs []int64              `json:"ticket_ids"`
	Count     int                  `json:"count"`
	Changes   zendesk.TicketUpdate `json:"changes"`
	Job       zendesk.Record       `json:"job_status,omitempty"`
}

// handleBulkUpdateTickets applies one update to many tickets through the
// update_many endpoint. Zendesk runs the update as a background job whose
// status is returned.
func handleBulkUpdateTickets(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := ticketIDs(args, true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	update, err := parseUpdates(args["updates"])
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	reason, err := tools.StringArg(args, "reason", false)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	if reason != "" {
		update.Comment = &zendesk.Comment{Body: "Bulk update: " + reason, Public: false}
	}

	if result := tools.CheckMutatingOperation(sc, tools.OpUpdate); result != nil {
		return result, nil
	}
	if result, err := tools.DryRunResult(sc, tools.OpUpdate, ids, update); result != nil || err != nil {
		return result, err
	}

	job, err := sc.ZendeskClient().UpdateManyTickets(ctx, ids, update)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	sc.Logger().Info("Queued bulk ticket update", "tickets", len(ids), "job_id", job["id"])

	return tools.JSONResult(BulkUpdateResult{
		Success:   true,
		TicketIDs: ids,
		Count:     len(ids),
		Changes:   update,
		Job:       job,
	})
}

// ticketIDs reads the ticket_ids argument, dropping duplicates and
// enforcing the update_many ceiling.
func ticketIDs(args map[string]interface{}, required bool) ([]int64, error) {
	ids, err := tools.Int64SliceArg(args, "ticket_ids", required)
	if err != nil {
		return nil, err
	}
	if required && len(ids) == 0 {
		return nil, &output.ValidationError{Field: "ticket_ids", Message: "must not be empty"}
	}

	seen := make(map[int64]bool, len(ids))
	unique := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) > zendesk.MaxShowMany {
		return nil, &output.ValidationError{
			Field:   "ticket_ids",
			Message: fmt.Sprintf("at most %d tickets can be changed at once, got %d", zendesk.MaxShowMany, len(unique)),
		}
	}
	return unique, nil
}

// parseUpdates converts the updates argument into a ticket update.
func parseUpdates(raw interface{}) (zendesk.TicketUpdate, error) {
	var update zendesk.TicketUpdate

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return update, &output.ValidationError{Field: "updates", Message: "must be an object"}
	}

	var err error
	if update.Status, err = tools.EnumArg(fields, "status", "", updatableStatuses...); err != nil {
		return update, relabel(err, "updates.status")
	}
	if update.Priority, err = tools.EnumArg(fields, "priority", "", priorities...); err != nil {
		return update, relabel(err, "updates.priority")
	}
	if update.AssigneeID, err = optionalID(fields, "assignee_id"); err != nil {
		return update, relabel(err, "updates.assignee_id")
	}
	if update.GroupID, err = optionalID(fields, "group_id"); err != nil {
		return update, relabel(err, "updates.group_id")
	}

	if rawTags, ok := fields["tags"]; ok && rawTags != nil {
		tags, ok := rawTags.(map[string]interface{})
		if !ok {
			return update, &output.ValidationError{Field: "updates.tags", Message: "must be an object with action and values"}
		}
		action, err := tools.EnumArg(tags, "action", "", tagsAdd, tagsRemove, tagsSet)
		if err != nil {
			return update, relabel(err, "updates.tags.action")
		}
		values, err := tools.StringSliceArg(tags, "values")
		if err != nil {
			return update, relabel(err, "updates.tags.values")
		}
		switch action {
		case tagsAdd:
			update.AdditionalTags = values
		case tagsRemove:
			update.RemoveTags = values
		case tagsSet:
			// An empty set would strip every tag from every ticket.
			if len(values) == 0 {
				return update, &output.ValidationError{Field: "updates.tags.values", Message: "must not be empty when action is set"}
			}
			update.Tags = values
		default:
			return update, &output.ValidationError{Field: "updates.tags.action", Message: "is required"}
		}
	}

	if update.Empty() {
		return update, &output.ValidationError{Field: "updates", Message: "must change at least one of status, priority, assignee_id, group_id or tags"}
	}
	return update, nil
}

func optionalID(args map[string]interface{}, key string) (int64, error) {
	id, ok, err := tools.Int64Arg(args, key, false)
	if err != nil {
		return 0, err
	}
	if ok && id <= 0 {
		return 0, &output.ValidationError{Field: key, Message: "must be a positive integer"}
	}
	return id, nil
}

// relabel reports a validation error against the nested field it came from.
func relabel(err error, field string) error {
	var verr *output.ValidationError
	if errors.As(err, &verr) {
		return &output.ValidationError{Field: field, Message: verr.Message}
	}
	return err
}

// EscalationResult is the result of escalate_ticket.
type EscalationResult struct {
	Success          bool     `json:"success"`
	TicketID         int64    `json:"ticket_id"`
	Level            string   `json:"escalation_level"`
	PreviousPriority string   `json:"previous_priority,omitempty"`
	Priority         string   `json:"priority"`
	TagsAdded        []string `json:"tags_added"`
	Notified         bool     `json:"stakeholders_flagged"`
	Status           string   `json:"ticket_status,omitempty"`
}

// handleEscalateTicket raises a ticket's priority to the level's minimum,
// tags it and records the reason as an internal note in one update.
func handleEscalateTicket(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "ticket_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	level, err := tools.EnumArg(args, "escalation_level", "", escalationLevels...)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	if level == "" {
		return tools.ErrorResult(&output.ValidationError{Field: "escalation_level", Message: "is required"}), nil
	}
	reason, err := tools.StringArg(args, "reason", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	notify, err := tools.BoolArg(args, "notify_stakeholders", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	if result := tools.CheckMutatingOperation(sc, tools.OpEscalate); result != nil {
		return result, nil
	}

	client := sc.ZendeskClient()
	ticket, err := client.GetTicket(ctx, id)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	previous := zendesk.String(ticket, "priority")
	priority := raisePriority(previous, escalationPriority[level])

	note := fmt.Sprintf("Escalated to %s: %s", level, reason)
	tags := []string{"escalated_" + level}
	if notify {
		note += "\n\nStakeholders have been flagged for follow-up on this escalation."
		tags = append(tags, notifyTag)
	}

	update := zendesk.TicketUpdate{
		AdditionalTags: tags,
		Comment:        &zendesk.Comment{Body: note, Public: false},
	}
	if priority != previous {
		update.Priority = priority
	}

	if result, err := tools.DryRunResult(sc, tools.OpEscalate, []int64{id}, update); result != nil || err != nil {
		return result, err
	}

	updated, err := client.UpdateTicket(ctx, id, update)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	sc.Logger().Info("Escalated ticket", "ticket_id", id, "level", level, "priority", priority)

	return tools.JSONResult(EscalationResult{
		Success:          true,
		TicketID:         id,
		Level:            level,
		PreviousPriority: previous,
		Priority:         priority,
		TagsAdded:        tags,
		Notified:         notify,
		Status:           zendesk.String(updated, "status"),
	})
}

// raisePriority returns the higher of current and floor. An unset or
// unknown current priority is replaced by floor.
func raisePriority(current, floor string) string {
	rank := func(p string) int {
		for i, q := range priorities {
			if q == p {
				return i
			}
		}
		return -1
	}
	if rank(current) >= rank(floor) {
		return current
	}
	return floor
}
