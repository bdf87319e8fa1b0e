package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UserTicketRelation selects which of a user's tickets to list.
type UserTicketRelation string

const (
	TicketsRequested UserTicketRelation = "requested"
	TicketsAssigned  UserTicketRelation = "assigned"
	TicketsCCd       UserTicketRelation = "ccd"
)

// Valid reports whether r is a known relation.
func (r UserTicketRelation) Valid() bool {
	switch r {
	case TicketsRequested, TicketsAssigned, TicketsCCd:
		return true
	}
	return false
}

// PeopleManager handles users, organizations and satisfaction ratings.
type PeopleManager interface {
	// GetUser returns one user.
	GetUser(ctx context.Context, id int64) (Record, error)

	// GetUsers returns up to MaxShowMany users in one request.
	GetUsers(ctx context.Context, ids []int64) ([]Record, error)

	// CurrentUser returns the authenticated user.
	CurrentUser(ctx context.Context) (Record, error)

	// ListUserTickets returns tickets related to a user.
	ListUserTickets(ctx context.Context, userID int64, relation UserTicketRelation, opts ListOptions) (*Collection, error)

	// ListOrganizationTickets returns an organization's tickets.
	ListOrganizationTickets(ctx context.Context, orgID int64, opts ListOptions) (*Collection, error)

	// ListSatisfactionRatings returns satisfaction ratings, newest first.
	ListSatisfactionRatings(ctx context.Context, opts ListOptions) (*Collection, error)
}

func (c *httpClient) GetUser(ctx context.Context, id int64) (Record, error) {
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointUsers,
		path:     fmt.Sprintf("users/%d.json", id),
		resource: "user",
		id:       id,
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "user"), nil
}

func (c *httpClient) GetUsers(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxShowMany {
		return nil, fmt.Errorf("at most %d users can be fetched at once, got %d", MaxShowMany, len(ids))
	}
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointUsers,
		path:     "users/show_many.json",
		query:    url.Values{"ids": {joinIDs(ids)}},
		resource: "users",
	}, &body)
	if err != nil {
		return nil, err
	}
	return records(body["users"]), nil
}

func (c *httpClient) CurrentUser(ctx context.Context) (Record, error) {
	var body map[string]interface{}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointUsers,
		path:     "users/me.json",
		resource: "current user",
	}, &body)
	if err != nil {
		return nil, err
	}
	return object(body, "user"), nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	_, err := c.CurrentUser(ctx)
	return err
}

func (c *httpClient) ListUserTickets(ctx context.Context, userID int64, relation UserTicketRelation, opts ListOptions) (*Collection, error) {
	if !relation.Valid() {
		return nil, fmt.Errorf("invalid ticket relation %q: must be requested, assigned or ccd", relation)
	}
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointUsers,
		path:     fmt.Sprintf("users/%d/tickets/%s.json", userID, relation),
		resource: "user",
		id:       userID,
	}, "tickets", c.maxRecords(opts))
}

func (c *httpClient) ListOrganizationTickets(ctx context.Context, orgID int64, opts ListOptions) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointOrganizations,
		path:     fmt.Sprintf("organizations/%d/tickets.json", orgID),
		resource: "organization",
		id:       orgID,
	}, "tickets", c.maxRecords(opts))
}

func (c *httpClient) ListSatisfactionRatings(ctx context.Context, opts ListOptions) (*Collection, error) {
	return c.collect(ctx, request{
		method:   http.MethodGet,
		endpoint: EndpointSatisfactionRatings,
		path:     "satisfaction_ratings.json",
		query:    url.Values{"sort_order": {"desc"}},
		resource: "satisfaction ratings",
	}, "satisfaction_ratings", c.maxRecords(opts))
}
