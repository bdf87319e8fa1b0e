package people

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/tools"
	"github.com/giantswarm/mcp-zendesk/internal/tools/output"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// handleGetUser returns one user.
func handleGetUser(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "user_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, userSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	user, err := sc.ZendeskClient().GetUser(ctx, id)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	return tools.Respond(ctx, sc, []output.Record{user}, output.EntityUser, opts, output.QueryMeta{
		Params: map[string]interface{}{"user_id": id},
	})
}

// handleGetUserTickets lists the tickets a user requested, is assigned or is copied on.
func handleGetUserTickets(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "user_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	relation, err := tools.EnumArg(args, "ticket_type", string(zendesk.TicketsRequested),
		string(zendesk.TicketsRequested), string(zendesk.TicketsAssigned), string(zendesk.TicketsCCd))
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, ticketsSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	tickets, err := sc.ZendeskClient().ListUserTickets(ctx, id, zendesk.UserTicketRelation(relation), zendesk.ListOptions{})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	return tools.Respond(ctx, sc, tools.Records(tickets.Records), output.EntityTicket, opts, output.QueryMeta{
		Params:   map[string]interface{}{"user_id": id, "ticket_type": relation},
		Warnings: tools.CollectionWarnings(tickets),
	})
}

// handleGetOrganizationTickets lists an organization's tickets.
func handleGetOrganizationTickets(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := tools.PositiveIDArg(args, "organization_id")
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	opts, err := tools.ParseOptions(sc, args, ticketsSpec)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	tickets, err := sc.ZendeskClient().ListOrganizationTickets(ctx, id, zendesk.ListOptions{})
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	return tools.Respond(ctx, sc, tools.Records(tickets.Records), output.EntityTicket, opts, output.QueryMeta{
		Params:   map[string]interface{}{"organization_id": id},
		Warnings: tools.CollectionWarnings(tickets),
	})
}
