package ticket

import (
	"context"
	"errors"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

const (
	defaultCommentLimit = 5
	maxCommentLimit     = 20

	// aggregateQuery selects the tickets get_ticket_metrics aggregates over.
	aggregateQuery = "type:ticket created>7days"

	// maxAggregateTickets bounds the metric lookups of one aggregate call.
	maxAggregateTickets = 50

	// fanOutLimit bounds concurrent Zendesk calls from one tool call.
	fanOutLimit = 4
)

var (
	ticketStatuses   = []string{"new", "open", "pending", "hold", "solved", "closed"}
	ticketPriorities = []string{"low", "normal", "high", "urgent"}
)

// handleGetTicket returns one ticket as a single-record envelope.
func handleGetTicket(spec output.OptionSpec) tools.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := tools.PositiveIDArg(args, "ticket_id")
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		opts, err := tools.ParseOptions(sc, args, spec)
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		ticket, err := sc.ZendeskClient().GetTicket(ctx, id)
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		return tools.Respond(ctx, sc, []output.Record{ticket}, output.EntityTicket, opts, output.QueryMeta{
			Params: map[string]interface{}{"ticket_id": id},
		})
	}
}

// handleGetTicketComments returns a ticket's comments, oldest first.
func handleGetTicketComments(spec output.OptionSpec) tools.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := tools.PositiveIDArg(args, "ticket_id")
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		opts, err := tools.ParseOptions(sc, args, spec)
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		comments, err := sc.ZendeskClient().ListTicketComments(ctx, id, zendesk.ListOptions{})
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		return tools.Respond(ctx, sc, tools.Records(comments.Records), output.EntityComment, opts, output.QueryMeta{
			Params:   map[string]interface{}{"ticket_id": id},
			Warnings: tools.CollectionWarnings(comments),
		})
	}
}

// CommentResult reports a created comment.
type CommentResult struct {
	Success  bool   `json:"success"`
	TicketID int64  `json:"ticket_id"`
	Public   bool   `json:"public"`
	Status   string `json:"ticket_status,omitempty"`
}

// handleCreateTicketComment adds a comment to a ticket.
func handleCreateTicketComment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "ticket_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	body, err := tools.StringArg(args, "comment", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	public, err := tools.BoolArg(args, "public", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	if blocked := tools.CheckMutatingOperation(sc, tools.OpComment); blocked != nil {
		return blocked, nil
	}

	comment := zendesk.Comment{HTMLBody: body, Public: public}
	if res, err := tools.DryRunResult(sc, tools.OpComment, []int64{id}, comment); res != nil || err != nil {
		return res, err
	}

	ticket, err := sc.ZendeskClient().CreateTicketComment(ctx, id, comment)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	sc.Logger().Info("Created ticket comment", "ticket_id", id, "public", public)

	return tools.JSONResult(CommentResult{
		Success:  true,
		TicketID: id,
		Public:   public,
		Status:   zendesk.String(ticket, "status"),
	})
}

// handleSearchTickets runs a ticket search and returns the bounded envelope.
func handleSearchTickets(spec output.OptionSpec) tools.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		query, err := tools.StringArg(args, "query", true)
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		sortBy, err := tools.EnumArg(args, "sort_by", "created_at", sortFields...)
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		sortOrder, err := tools.EnumArg(args, "sort_order", "desc", "asc", "desc")
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		opts, err := tools.ParseOptions(sc, args, spec)
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		q := zendesk.TicketQuery(query)
		results, err := sc.ZendeskClient().Search(ctx, q, zendesk.SearchOptions{
			SortBy:    sortBy,
			SortOrder: sortOrder,
		})
		if err != nil {
			return tools.ErrorResult(err), nil
		}

		return tools.Respond(ctx, sc, tools.Records(results.Records), output.EntityTicket, opts, output.QueryMeta{
			Query:    q,
			Params:   map[string]interface{}{"sort_by": sortBy, "sort_order": sortOrder},
			Warnings: tools.CollectionWarnings(results),
		})
	}
}

// handleAnalyzeTicket fetches a ticket, its comments and its metrics
// concurrently and returns them as one ticket record.
func handleAnalyzeTicket(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "ticket_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	commentLimit, err := tools.SizeArg(args, "comment_limit", output.LimitSpec{Default: defaultCommentLimit, Max: maxCommentLimit})
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, singleSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	client := sc.ZendeskClient()
	var (
		ticket   zendesk.Record
		comments *zendesk.Collection
		metrics  zendesk.Record
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ticket, err = client.GetTicket(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = client.ListTicketComments(gctx, id, zendesk.ListOptions{})
		return err
	})
	g.Go(func() error {
		m, err := client.GetTicketMetrics(gctx, id)
		if errors.Is(err, zendesk.ErrNotFound) {
			warnings = append(warnings, "no metrics recorded for this ticket")
			return nil
		}
		metrics = m
		return err
	})
	if err := g.Wait(); err != nil {
		return tools.ErrorResult(err), nil
	}
	if err := ctx.Err(); err != nil {
		return tools.ErrorResult(err), nil
	}
	warnings = append(warnings, tools.CollectionWarnings(comments)...)

	analysis := buildAnalysis(ticket, comments.Records, metrics, commentLimit, opts.MaxBodyLength())

	return tools.Respond(ctx, sc, []output.Record{analysis}, output.EntityTicket, opts, output.QueryMeta{
		Params:   map[string]interface{}{"ticket_id": id, "comment_limit": commentLimit},
		Warnings: warnings,
	})
}

// buildAnalysis merges the conversation and metrics into a copy of ticket.
func buildAnalysis(ticket zendesk.Record, comments []zendesk.Record, metrics zendesk.Record, commentLimit, maxBody int) output.Record {
	analysis := make(output.Record, len(ticket)+6)
	for k, v := range ticket {
		analysis[k] = v
	}

	public := 0
	authors := map[int64]struct{}{}
	for _, c := range comments {
		if p, _ := c["public"].(bool); p {
			public++
		}
		if a, ok := zendesk.Int64(c, "author_id"); ok {
			authors[a] = struct{}{}
		}
	}
	analysis["comment_count"] = len(comments)
	analysis["public_comment_count"] = public
	analysis["participant_count"] = len(authors)

	start := max(len(comments)-commentLimit, 0)
	recent := make([]interface{}, 0, len(comments)-start)
	for _, c := range comments[start:] {
		entry := map[string]interface{}{
			"id":         c["id"],
			"author_id":  c["author_id"],
			"public":     c["public"],
			"created_at": c["created_at"],
			"body":       c["body"],
		}
		entry, _ = output.ClipText(entry, []string{"body"}, maxBody)
		recent = append(recent, entry)
	}
	analysis["recent_comments"] = recent

	if len(comments) > 0 {
		last := comments[len(comments)-1]
		analysis["last_comment_at"] = last["created_at"]
		analysis["last_comment_author_id"] = last["author_id"]
	}

	if metrics != nil {
		analysis["metrics"] = map[string]interface{}{
			"replies":                 metrics["replies"],
			"reopens":                 metrics["reopens"],
			"assignee_stations":       metrics["assignee_stations"],
			"group_stations":          metrics["group_stations"],
			"initially_assigned_at":   metrics["initially_assigned_at"],
			"assignee_updated_at":     metrics["assignee_updated_at"],
			"latest_comment_added_at": metrics["latest_comment_added_at"],
			"solved_at":               metrics["solved_at"],
		}
	}
	return analysis
}

// TicketCounts is the result of get_ticket_counts.
type TicketCounts struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByPriority   map[string]int `json:"by_priority"`
	Recent7Days  int            `json:"recent_7_days"`
	UpdatedToday int            `json:"updated_today"`
}

// handleGetTicketCounts issues count queries concurrently. Any failure fails
// the whole call.
func handleGetTicketCounts(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client := sc.ZendeskClient()

	statusCounts := make([]int, len(ticketStatuses))
	priorityCounts := make([]int, len(ticketPriorities))
	var counts TicketCounts

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	g.Go(func() error {
		var err error
		counts.Total, err = client.CountTickets(gctx)
		return err
	})
	for i, status := range ticketStatuses {
		g.Go(func() error {
			var err error
			statusCounts[i], err = client.SearchCount(gctx, "type:ticket status:"+status)
			return err
		})
	}
	for i, priority := range ticketPriorities {
		g.Go(func() error {
			var err error
			priorityCounts[i], err = client.SearchCount(gctx, "type:ticket priority:"+priority)
			return err
		})
	}
	g.Go(func() error {
		var err error
		counts.Recent7Days, err = client.SearchCount(gctx, "type:ticket created>7days")
		return err
	})
	g.Go(func() error {
		var err error
		counts.UpdatedToday, err = client.SearchCount(gctx, "type:ticket updated>24hours")
		return err
	})

	if err := g.Wait(); err != nil {
		return tools.ErrorResult(err), nil
	}
	if err := ctx.Err(); err != nil {
		return tools.ErrorResult(err), nil
	}

	counts.ByStatus = make(map[string]int, len(ticketStatuses))
	for i, s := range ticketStatuses {
		counts.ByStatus[s] = statusCounts[i]
	}
	counts.ByPriority = make(map[string]int, len(ticketPriorities))
	for i, p := range ticketPriorities {
		counts.ByPriority[p] = priorityCounts[i]
	}

	return tools.JSONResult(counts)
}

// AggregateMetrics is the result of get_ticket_metrics without a ticket id.
type AggregateMetrics struct {
	Query              string  `json:"query"`
	RecentTicketsCount int     `json:"recent_tickets_count"`
	AnalyzedTickets    int     `json:"analyzed_tickets"`
	TotalReplies       int64   `json:"total_replies"`
	TotalReopens       int64   `json:"total_reopens"`
	AvgReplies         float64 `json:"avg_replies"`
	AvgReopens         float64 `json:"avg_reopens"`
	Notice             string  `json:"notice,omitempty"`
}

// handleGetTicketMetrics returns one ticket's metrics, or aggregates over
// recently created tickets.
func handleGetTicketMetrics(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, present, err := tools.Int64Arg(args, "ticket_id", false)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, singleSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	if present {
		if id <= 0 {
			return tools.ErrorResult(&output.ValidationError{Field: "ticket_id", Message: "must be a positive integer"}), nil
		}
		metric, err := sc.ZendeskClient().GetTicketMetrics(ctx, id)
		if err != nil {
			return tools.ErrorResult(err), nil
		}
		return tools.Respond(ctx, sc, []output.Record{metric}, output.EntityTicketMetric, opts, output.QueryMeta{
			Params: map[string]interface{}{"ticket_id": id},
		})
	}

	agg, err := aggregateMetrics(ctx, sc.ZendeskClient())
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	return tools.JSONResult(agg)
}

// aggregateMetrics sums replies and reopens over the newest tickets created
// in the last 7 days. Tickets without metrics are skipped.
func aggregateMetrics(ctx context.Context, client zendesk.Client) (*AggregateMetrics, error) {
	recent, err := client.Search(ctx, aggregateQuery, zendesk.SearchOptions{
		ListOptions: zendesk.ListOptions{MaxRecords: maxAggregateTickets},
		SortBy:      "created_at",
		SortOrder:   "desc",
	})
	if err != nil {
		return nil, err
	}

	agg := &AggregateMetrics{
		Query:              aggregateQuery,
		RecentTicketsCount: max(recent.Count, len(recent.Records)),
	}

	ids := make([]int64, 0, len(recent.Records))
	for _, r := range recent.Records {
		if id, ok := zendesk.Int64(r, "id"); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) > maxAggregateTickets {
		ids = ids[:maxAggregateTickets]
	}

	replies := make([]int64, len(ids))
	reopens := make([]int64, len(ids))
	found := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			m, err := client.GetTicketMetrics(gctx, id)
			if errors.Is(err, zendesk.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			replies[i], _ = zendesk.Int64(m, "replies")
			reopens[i], _ = zendesk.Int64(m, "reopens")
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range ids {
		if !found[i] {
			continue
		}
		agg.AnalyzedTickets++
		agg.TotalReplies += replies[i]
		agg.TotalReopens += reopens[i]
	}
	if agg.AnalyzedTickets > 0 {
		agg.AvgReplies = round2(float64(agg.TotalReplies) / float64(agg.AnalyzedTickets))
		agg.AvgReopens = round2(float64(agg.TotalReopens) / float64(agg.AnalyzedTickets))
	}
	if agg.RecentTicketsCount > agg.AnalyzedTickets {
		agg.Notice = "averages cover the newest tickets only; narrow the window for exact figures"
	}
	return agg, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
