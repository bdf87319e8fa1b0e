package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// TicketManager handles ticket reads and writes.
type TicketManager interface {
	// GetTicket returns one ticket.
	GetTicket(ctx context.Context, id int64) (Record, error)

	// GetTickets returns up to MaxShowMany tickets in one request. Missing
	// ids are silently absent from the result.
	GetTickets(ctx context.Context, ids []int64) ([]Record, error)

	// ListTicketComments returns a ticket's comments, oldest first.
	ListTicketComments(ctx context.Context, ticketID int64, opts ListOptions) (*Collection, error)

	// CreateTicketComment adds a comment to a ticket and returns the updated ticket.
	CreateTicketComment(ctx context.Context, ticketID int64, comment Comment) (Record, error)

	// UpdateTicket applies update to one ticket and returns it.
	UpdateTicket(ctx context.Context, id int64, update TicketUpdate) (Record, error)

	// UpdateManyTickets applies update to up to MaxShowMany tickets. Zendesk
	// runs it as a background job; the job status is returned.
	UpdateManyTickets(ctx context.Context, ids []int64, update TicketUpdate) (Record, error)

	// GetTicketMetrics returns the metric record of one ticket.
	GetTicketMetrics(ctx context.Context, ticketID int64) (Record, error)

	// ListTicketMetrics returns metric records across tickets.
	ListTicketMetrics(ctx context.Context, opts ListOptions) (*Collection, error)

	// CountTickets returns the account's ticket count. Zendesk reports an
	// approximate value for large accounts.
	CountTickets(ctx context.Context) (int, error)
}

// Comment is a ticket comment to create.
type Comment struct {
	Body     string `json:"body,omitempty"`
	HTMLBody string `json:"html_body,omitempty"`
	Public   bool   `json:"public"`
}

// TicketUpdate is the set of ticket fields a write changes. Zero values are
// not sent.
type TicketUpdate struct {
	Status         string   `json:"status,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	AssigneeID     int64    `json:"assignee_id,omitempty"`
	GroupID        int64    `json:"group_id,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	AdditionalTags []string `json:"additional_tags,omitempty"`
	RemoveTags     []string `json:"remove_tags,omitempty"`
	Comment        *Comment `json:"comment,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TicketUpdate) Empty() bool {
	return u.Status == "" && u.Priority == "" && u.AssigneeID == 0 && u.GroupID == 0 &&
		len(u.Tags) == 0 && len(u.AdditionalTags) == 0 && len(u.RemoveTags) == 0 && u.Comment == nil
}

type ticketPayload struct {
	Ticket TicketUpdate `json:"ticket"`
}

func (c *httpClient) GetTicket(ctx context.Context, id int64) (Record, error) {
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTickets,
		path:     fmt.Sprintf("tickets/%d.json", id),
		resource: "ticket",
		id:       id,
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "ticket"), nil
}

func (c *httpClient) GetTickets(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxShowMany {
		return nil, fmt.Errorf("at most %d tickets can be fetched at once, got %d", MaxShowMany, len(ids))
	}
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTickets,
		path:     "tickets/show_many.json",
		query:    url.Values{"ids": {joinIDs(ids)}},
		resource: "tickets",
	}, &body)
	if err != nil {
		return nil, err
	}
	return records(body["tickets"]), nil
}

func (c *httpClient) ListTicketComments(ctx context.Context, ticketID int64, opts ListOptions) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTicketComments,
		path:     fmt.Sprintf("tickets/%d/comments.json", ticketID),
		resource: "ticket",
		id:       ticketID,
	}, "comments", c.maxRecords(opts))
}

func (c *httpClient) CreateTicketComment(ctx context.Context, ticketID int64, comment Comment) (Record, error) {
	if comment.Body == "" && comment.HTMLBody == "" {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Message: "comment body is empty"}
	}
	return c.UpdateTicket(ctx, ticketID, TicketUpdate{Comment: &comment})
}

func (c *httpClient) UpdateTicket(ctx context.Context, id int64, update TicketUpdate) (Record, error) {
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodPut,
		endpoint: EndpointTickets,
		path:     fmt.Sprintf("tickets/%d.json", id),
		body:     ticketPayload{Ticket: update},
		resource: "ticket",
		id:       id,
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "ticket"), nil
}

func (c *httpClient) UpdateManyTickets(ctx context.Context, ids []int64, update TicketUpdate) (Record, error) {
	if len(ids) == 0 {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Message: "no ticket ids given"}
	}
	if len(ids) > MaxShowMany {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Message: "at most " + strconv.Itoa(MaxShowMany) + " tickets per bulk update"}
	}
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodPut,
		endpoint: EndpointTickets,
		path:     "tickets/update_many.json",
		query:    url.Values{"ids": {joinIDs(ids)}},
		body:     ticketPayload{Ticket: update},
		resource: "tickets",
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "job_status"), nil
}

func (c *httpClient) GetTicketMetrics(ctx context.Context, ticketID int64) (Record, error) {
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTicketMetrics,
		path:     fmt.Sprintf("tickets/%d/metrics.json", ticketID),
		resource: "ticket metrics for ticket",
		id:       ticketID,
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "ticket_metric"), nil
}

func (c *httpClient) ListTicketMetrics(ctx context.Context, opts ListOptions) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTicketMetrics,
		path:     "ticket_metrics.json",
		resource: "ticket metrics",
	}, "ticket_metrics", c.maxRecords(opts))
}

func (c *httpClient) CountTickets(ctx context.Context) (int, error) {
	var body struct {
		Count struct {
			Value int `json:"value"`
		} `json:"count"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointTickets,
		path:     "tickets/count.json",
		resource: "ticket count",
	}, &body)
	if err != nil {
		return 0, err
	}
	return body.Count.Value, nil
}
