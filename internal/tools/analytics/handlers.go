package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

var (
	ratingWindow = output.LimitSpec{Default: 100, Max: 1000}
	daysWindow   = output.LimitSpec{Default: 7, Max: 90}
)

const (
	overloadFactor  = 1.5
	underloadFactor = 0.5

	// maxFlagged bounds the overloaded id list in the report header.
	maxFlagged = 10
)

// RatingsReport is the result of get_satisfaction_ratings.
type RatingsReport struct {
	TotalRatings      int             `json:"total_ratings"`
	ScoreDistribution map[string]int  `json:"score_distribution"`
	SatisfactionRate  *float64        `json:"satisfaction_rate,omitempty"`
	Ratings           json.RawMessage `json:"ratings"`
}

// handleGetSatisfactionRatings reports the score distribution over the most
// recent ratings and returns the ratings as a bounded envelope.
func handleGetSatisfactionRatings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	window, err := tools.SizeArg(args, "window", ratingWindow)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, reportSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	ratings, err := sc.ZendeskClient().ListSatisfactionRatings(ctx, zendesk.ListOptions{MaxRecords: window})
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	records := tools.Records(ratings.Records)

	summary, err := output.Summarize(records, output.SummarySpec{
		GroupBy:    []string{"score"},
		IDField:    "id",
		TopNLimit:  output.LimitSpec{Default: 1, Max: 1},
		MaxBuckets: output.DefaultMaxBuckets,
	})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	report := RatingsReport{
		TotalRatings:      len(records),
		ScoreDistribution: summary.BreakdownBy("score"),
	}
	if report.ScoreDistribution == nil {
		report.ScoreDistribution = map[string]int{}
	}
	good, bad := report.ScoreDistribution["good"], report.ScoreDistribution["bad"]
	if good+bad > 0 {
		rate := round2(float64(good) / float64(good+bad))
		report.SatisfactionRate = &rate
	}

	_, data, err := tools.Assemble(ctx, sc, records, output.EntitySatisfactionRating, opts, output.QueryMeta{
		Params:   map[string]interface{}{"window": window},
		Warnings: tools.CollectionWarnings(ratings),
	})
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	report.Ratings = tools.Embeddable(data)

	return tools.ReportResult(report)
}

// PerformanceReport is the result of get_agent_performance.
type PerformanceReport struct {
	Days        int             `json:"days"`
	TotalSolved int             `json:"total_solved"`
	Unassigned  int             `json:"unassigned"`
	AgentCount  int             `json:"agent_count"`
	Agents      json.RawMessage `json:"agents"`
}

// handleGetAgentPerformance ranks assignees by tickets solved in the last
// days.
func handleGetAgentPerformance(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	days, err := tools.SizeArg(args, "days", daysWindow)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, reportSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	client := sc.ZendeskClient()
	query := fmt.Sprintf("type:ticket status:solved solved>%ddays", days)
	solved, err := client.Search(ctx, query, zendesk.SearchOptions{SortBy: "updated_at", SortOrder: "desc"})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	t := newTally()
	for _, ticket := range solved.Records {
		if a := t.add(ticket); a != nil {
			a.solved++
		}
	}

	users, err := lookupAgents(ctx, client, t.ids())
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	stats := sortedStats(t, func(a, b *agentStats) bool {
		if a.solved != b.solved {
			return a.solved > b.solved
		}
		return a.priorityScore > b.priorityScore
	})
	agents := make([]output.Record, 0, len(stats))
	for _, a := range stats {
		rec := agentRecord(a, users[a.id])
		rec["solved"] = a.solved
		agents = append(agents, rec)
	}

	_, data, err := tools.Assemble(ctx, sc, agents, output.EntityAgent, opts, output.QueryMeta{
		Query:    query,
		Params:   map[string]interface{}{"days": days},
		Warnings: tools.CollectionWarnings(solved),
	})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	return tools.ReportResult(PerformanceReport{
		Days:        days,
		TotalSolved: len(solved.Records),
		Unassigned:  t.unassigned,
		AgentCount:  len(agents),
		Agents:      tools.Embeddable(data),
	})
}

// WorkloadReport is the result of get_agent_workload_analysis.
type WorkloadReport struct {
	Statuses     []string        `json:"statuses"`
	TotalTickets int             `json:"total_tickets"`
	Unassigned   int             `json:"unassigned"`
	AgentCount   int             `json:"agent_count"`
	AverageLoad  float64         `json:"average_load"`
	Overloaded   []int64         `json:"overloaded_agent_ids,omitempty"`
	Agents       json.RawMessage `json:"agents"`
}

// handleGetAgentWorkload groups unsolved tickets by assignee and flags
// agents carrying more than overloadFactor times the average load.
func handleGetAgentWorkload(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	includeOpen, err := tools.BoolArg(args, "include_open", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	includePending, err := tools.BoolArg(args, "include_pending", true)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	if !includeOpen && !includePending {
		return tools.ErrorResult(&output.ValidationError{
			Field:   "include_open",
			Message: "at least one of include_open or include_pending must be true",
		}), nil
	}
	opts, err := tools.ParseOptions(sc, args, reportSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	var statuses []string
	if includeOpen {
		statuses = append(statuses, "open")
	}
	if includePending {
		statuses = append(statuses, "pending", "hold")
	}

	client := sc.ZendeskClient()
	collections := make([]*zendesk.Collection, len(statuses))
	g, gctx := errgroup.WithContext(ctx)
	for i, status := range statuses {
		g.Go(func() error {
			c, err := client.Search(gctx, "type:ticket status:"+status, zendesk.SearchOptions{})
			collections[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return tools.ErrorResult(err), nil
	}
	if err := ctx.Err(); err != nil {
		return tools.ErrorResult(err), nil
	}

	t := newTally()
	total := 0
	var warnings []string
	for i, c := range collections {
		warnings = append(warnings, tools.CollectionWarnings(c)...)
		total += len(c.Records)
		for _, ticket := range c.Records {
			a := t.add(ticket)
			if a == nil {
				continue
			}
			switch statuses[i] {
			case "open":
				a.open++
			case "pending":
				a.pending++
			case "hold":
				a.onHold++
			}
		}
	}

	users, err := lookupAgents(ctx, client, t.ids())
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	report := WorkloadReport{
		Statuses:     statuses,
		TotalTickets: total,
		Unassigned:   t.unassigned,
		AgentCount:   len(t.agents),
	}
	if report.AgentCount > 0 {
		report.AverageLoad = round2(float64(total-t.unassigned) / float64(report.AgentCount))
	}

	stats := sortedStats(t, func(a, b *agentStats) bool {
		if a.total() != b.total() {
			return a.total() > b.total()
		}
		return a.priorityScore > b.priorityScore
	})
	agents := make([]output.Record, 0, len(stats))
	for _, a := range stats {
		rec := agentRecord(a, users[a.id])
		rec["open"] = a.open
		rec["pending"] = a.pending
		rec["on_hold"] = a.onHold
		rec["total"] = a.total()
		rec["load_status"] = loadStatus(float64(a.total()), report.AverageLoad)
		if rec["load_status"] == "overloaded" && len(report.Overloaded) < maxFlagged {
			report.Overloaded = append(report.Overloaded, a.id)
		}
		agents = append(agents, rec)
	}

	_, data, err := tools.Assemble(ctx, sc, agents, output.EntityAgent, opts, output.QueryMeta{
		Params:   map[string]interface{}{"include_open": includeOpen, "include_pending": includePending},
		Warnings: warnings,
	})
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	report.Agents = tools.Embeddable(data)

	return tools.ReportResult(report)
}

func loadStatus(load, average float64) string {
	switch {
	case average <= 0:
		return "balanced"
	case load > average*overloadFactor:
		return "overloaded"
	case load < average*underloadFactor:
		return "underloaded"
	default:
		return "balanced"
	}
}

// sortedStats orders the tallied agents by less, breaking ties by id.
func sortedStats(t *tally, less func(a, b *agentStats) bool) []*agentStats {
	stats := make([]*agentStats, 0, len(t.agents))
	for _, id := range t.ids() {
		stats = append(stats, t.agents[id])
	}
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.id < b.id
	})
	return stats
}
