package analytics

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// PriorityWeights score tickets by priority.
var PriorityWeights = map[string]float64{
	"urgent": 4,
	"high":   3,
	"normal": 2,
	"low":    1,
}

var priorityScore = output.RankBy(&output.RankRule{Field: "priority", Weights: PriorityWeights})

// agentStats accumulates one assignee's tickets.
type agentStats struct {
	id            int64
	solved        int
	open          int
	pending       int
	onHold        int
	urgent        int
	high          int
	priorityScore float64
	scored        int
}

func (a *agentStats) total() int {
	return a.open + a.pending + a.onHold
}

// tally groups tickets by assignee. Tickets without an assignee are counted
// in unassigned only.
type tally struct {
	agents     map[int64]*agentStats
	unassigned int
}

func newTally() *tally {
	return &tally{agents: map[int64]*agentStats{}}
}

func (t *tally) add(ticket zendesk.Record) *agentStats {
	id, ok := zendesk.Int64(ticket, "assignee_id")
	if !ok || id <= 0 {
		t.unassigned++
		return nil
	}
	a := t.agents[id]
	if a == nil {
		a = &agentStats{id: id}
		t.agents[id] = a
	}

	switch zendesk.String(ticket, "priority") {
	case "urgent":
		a.urgent++
	case "high":
		a.high++
	}
	if score, ok := priorityScore(ticket); ok {
		a.priorityScore += score
		a.scored++
	}
	return a
}

func (t *tally) ids() []int64 {
	ids := make([]int64, 0, len(t.agents))
	for id := range t.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// lookupAgents fetches the users behind ids in show_many batches.
func lookupAgents(ctx context.Context, client zendesk.Client, ids []int64) (map[int64]zendesk.Record, error) {
	var batches [][]int64
	for start := 0; start < len(ids); start += zendesk.MaxShowMany {
		batches = append(batches, ids[start:min(start+zendesk.MaxShowMany, len(ids))])
	}

	results := make([][]zendesk.Record, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, batch := range batches {
		g.Go(func() error {
			users, err := client.GetUsers(gctx, batch)
			results[i] = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := make(map[int64]zendesk.Record, len(ids))
	for _, batch := range results {
		for _, u := range batch {
			if id, ok := zendesk.Int64(u, "id"); ok {
				users[id] = u
			}
		}
	}
	return users, nil
}

// agentRecord starts an agent record from the user behind a, if known.
func agentRecord(a *agentStats, user zendesk.Record) output.Record {
	rec := output.Record{"id": a.id}
	if user != nil {
		rec["name"] = user["name"]
		rec["email"] = user["email"]
		rec["role"] = user["role"]
	}
	rec["priority_score"] = a.priorityScore
	if a.scored > 0 {
		rec["avg_priority"] = round2(a.priorityScore / float64(a.scored))
	}
	rec["urgent"] = a.urgent
	rec["high"] = a.high
	return rec
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
