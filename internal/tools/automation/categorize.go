package automation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/categorize"
	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

const (
	// recentQuery selects the candidates when no ticket ids are given.
	recentQuery = "type:ticket created>7days"

	// maxCandidates bounds the recent tickets fetched for categorization.
	maxCandidates = 50
)

// CategorizedTicket is the category chosen for one ticket.
type CategorizedTicket struct {
	TicketID   int64    `json:"ticket_id"`
	Subject    string   `json:"subject,omitempty"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched_keywords,omitempty"`
	Tag        string   `json:"tag"`
}

// CategorizeReport is the result of auto_categorize_tickets.
type CategorizeReport struct {
	Method     string              `json:"method"`
	Applied    bool                `json:"applied"`
	Analyzed   int                 `json:"analyzed"`
	ByCategory map[string]int      `json:"by_category"`
	Tickets    []CategorizedTicket `json:"tickets"`
	Jobs       []zendesk.Record    `json:"jobs,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// handleAutoCategorizeTickets categorizes tickets by their subject and
// description and, with apply=true, tags each ticket with its category.
func handleAutoCategorizeTickets(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := ticketIDs(args, false)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	method := ""
	if _, ok := args["use_ml"]; ok {
		useML, err := tools.BoolArg(args, "use_ml", true)
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		method = categorize.MethodRules
		if useML {
			method = categorize.MethodBayes
		}
	}
	apply, err := tools.BoolArg(args, "apply", false)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	if apply {
		if result := tools.CheckMutatingOperation(sc, tools.OpCategorize); result != nil {
			return result, nil
		}
	}

	tickets, warnings, err := candidates(ctx, sc.ZendeskClient(), ids)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	categorizer := sc.Categorizer(method)
	report := CategorizeReport{
		Method:     categorizer.Method(),
		Analyzed:   len(tickets),
		ByCategory: map[string]int{},
		Tickets:    make([]CategorizedTicket, 0, len(tickets)),
		Warnings:   warnings,
	}

	// Tickets grouped by the tag they get, so each tag is one update_many.
	byTag := map[string][]int64{}
	for _, ticket := range tickets {
		id, _ := zendesk.Int64(ticket, "id")
		result := categorizer.Categorize(categorize.TicketText(ticket))
		report.ByCategory[result.Category]++
		report.Tickets = append(report.Tickets, CategorizedTicket{
			TicketID:   id,
			Subject:    zendesk.String(ticket, "subject"),
			Category:   result.Category,
			Confidence: result.Confidence,
			Matched:    result.Matched,
			Tag:        result.Tag(),
		})
		byTag[result.Tag()] = append(byTag[result.Tag()], id)
	}

	if !apply || len(byTag) == 0 {
		return tools.JSONResult(report)
	}

	if result, err := tools.DryRunResult(sc, tools.OpCategorize, ticketIDsOf(report.Tickets), byTag); result != nil || err != nil {
		return result, err
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	client := sc.ZendeskClient()
	for _, tag := range tags {
		job, err := client.UpdateManyTickets(ctx, byTag[tag], zendesk.TicketUpdate{AdditionalTags: []string{tag}})
		if err != nil {
			return tools.ErrorResult(fmt.Errorf("tagging %d tickets with %s: %w", len(byTag[tag]), tag, err)), nil
		}
		report.Jobs = append(report.Jobs, job)
	}
	report.Applied = true

	sc.Logger().Info("Applied ticket categories", "tickets", len(report.Tickets), "categories", len(tags), "method", report.Method)

	return tools.JSONResult(report)
}

// candidates returns the tickets to categorize: the given ids, or recent
// tickets that carry no category tag yet.
func candidates(ctx context.Context, client zendesk.Client, ids []int64) ([]zendesk.Record, []string, error) {
	if len(ids) > 0 {
		tickets, err := client.GetTickets(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		found := make(map[int64]bool, len(tickets))
		for _, t := range tickets {
			if id, ok := zendesk.Int64(t, "id"); ok {
				found[id] = true
			}
		}
		var warnings []string
		for _, id := range ids {
			if !found[id] {
				warnings = append(warnings, fmt.Sprintf("ticket %d not found", id))
			}
		}
		return tickets, warnings, nil
	}

	recent, err := client.Search(ctx, recentQuery, zendesk.SearchOptions{
		ListOptions: zendesk.ListOptions{MaxRecords: maxCandidates},
		SortBy:      "created_at",
		SortOrder:   "desc",
	})
	if err != nil {
		return nil, nil, err
	}
	var tickets []zendesk.Record
	for _, t := range recent.Records {
		if !hasCategoryTag(t) {
			tickets = append(tickets, t)
		}
	}
	return tickets, tools.CollectionWarnings(recent), nil
}

func hasCategoryTag(ticket zendesk.Record) bool {
	tags, _ := ticket["tags"].([]interface{})
	for _, tag := range tags {
		if s, ok := tag.(string); ok && strings.HasPrefix(s, categorize.TagPrefix) {
			return true
		}
	}
	return false
}

func ticketIDsOf(tickets []CategorizedTicket) []int64 {
	ids := make([]int64, len(tickets))
	for i, t := range tickets {
		ids[i] = t.TicketID
	}
	return ids
}
