// Package testdata provides mock implementations for testing the tool packages.
package testdata

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/giantswarm/mcp-zendesk/internal/server"
	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// Compile-time interface compliance checks.
// These ensure the mocks always satisfy the interfaces they're meant to implement.
var (
	_ zendesk.Client = (*MockZendeskClient)(nil)
	_ server.Logger  = (*MockLogger)(nil)
)

// TicketWrite records one write issued through the mock.
type TicketWrite struct {
	Op      string
	IDs     []int64
	Update  zendesk.TicketUpdate
	Comment zendesk.Comment
}

// MockZendeskClient implements zendesk.Client over in-memory fixtures.
// Unknown ids yield *zendesk.NotFoundError; Err, when set, is returned by
// every call.
type MockZendeskClient struct {
	Tickets         map[int64]zendesk.Record
	Comments        map[int64][]zendesk.Record
	TicketMetrics   map[int64]zendesk.Record
	Users           map[int64]zendesk.Record
	UserTickets     map[int64][]zendesk.Record
	OrgTickets      map[int64][]zendesk.Record
	Ratings         []zendesk.Record
	Articles        []zendesk.Record
	Sections        []zendesk.Record
	SectionArticles map[int64][]zendesk.Record
	Me              zendesk.Record

	// SearchFunc answers Search; nil returns every ticket in id order.
	SearchFunc func(query string, opts zendesk.SearchOptions) (*zendesk.Collection, error)

	// CountFunc answers SearchCount; nil returns zero.
	CountFunc func(query string) (int, error)

	Err error

	mu      sync.Mutex
	calls   []string
	writes  []TicketWrite
	queries []string
	nextJob int
}

// NewMockZendeskClient returns an empty mock.
func NewMockZendeskClient() *MockZendeskClient {
	return &MockZendeskClient{
		Tickets:         map[int64]zendesk.Record{},
		Comments:        map[int64][]zendesk.Record{},
		TicketMetrics:   map[int64]zendesk.Record{},
		Users:           map[int64]zendesk.Record{},
		UserTickets:     map[int64][]zendesk.Record{},
		OrgTickets:      map[int64][]zendesk.Record{},
		SectionArticles: map[int64][]zendesk.Record{},
	}
}

// Calls returns the names of the methods called, in order.
func (m *MockZendeskClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Writes returns the writes issued, in order.
func (m *MockZendeskClient) Writes() []TicketWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TicketWrite(nil), m.writes...)
}

// Queries returns the search and count queries issued, in order.
func (m *MockZendeskClient) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

func (m *MockZendeskClient) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.Err
}

func collection(recs []zendesk.Record, opts zendesk.ListOptions) *zendesk.Collection {
	c := &zendesk.Collection{Records: recs, Count: len(recs)}
	if opts.MaxRecords > 0 && len(recs) > opts.MaxRecords {
		c.Records = recs[:opts.MaxRecords]
		c.Capped = true
	}
	return c
}

func sortedByID(m map[int64]zendesk.Record) []zendesk.Record {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]zendesk.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// GetTicket implements zendesk.TicketManager.
func (m *MockZendeskClient) GetTicket(_ context.Context, id int64) (zendesk.Record, error) {
	if err := m.record("GetTicket"); err != nil {
		return nil, err
	}
	t, ok := m.Tickets[id]
	if !ok {
		return nil, &zendesk.NotFoundError{Resource: "ticket", ID: id}
	}
	return t, nil
}

// GetTickets implements zendesk.TicketManager.
func (m *MockZendeskClient) GetTickets(_ context.Context, ids []int64) ([]zendesk.Record, error) {
	if err := m.record("GetTickets"); err != nil {
		return nil, err
	}
	var out []zendesk.Record
	for _, id := range ids {
		if t, ok := m.Tickets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListTicketComments implements zendesk.TicketManager.
func (m *MockZendeskClient) ListTicketComments(_ context.Context, ticketID int64, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("ListTicketComments"); err != nil {
		return nil, err
	}
	if _, ok := m.Tickets[ticketID]; !ok {
		return nil, &zendesk.NotFoundError{Resource: "ticket", ID: ticketID}
	}
	return collection(m.Comments[ticketID], opts), nil
}

// CreateTicketComment implements zendesk.TicketManager.
func (m *MockZendeskClient) CreateTicketComment(_ context.Context, ticketID int64, comment zendesk.Comment) (zendesk.Record, error) {
	if err := m.record("CreateTicketComment"); err != nil {
		return nil, err
	}
	t, ok := m.Tickets[ticketID]
	if !ok {
		return nil, &zendesk.NotFoundError{Resource: "ticket", ID: ticketID}
	}
	m.mu.Lock()
	m.writes = append(m.writes, TicketWrite{Op: "comment", IDs: []int64{ticketID}, Comment: comment})
	m.mu.Unlock()
	return t, nil
}

// UpdateTicket implements zendesk.TicketManager.
func (m *MockZendeskClient) UpdateTicket(_ context.Context, id int64, update zendesk.TicketUpdate) (zendesk.Record, error) {
	if err := m.record("UpdateTicket"); err != nil {
		return nil, err
	}
	t, ok := m.Tickets[id]
	if !ok {
		return nil, &zendesk.NotFoundError{Resource: "ticket", ID: id}
	}
	m.mu.Lock()
	m.writes = append(m.writes, TicketWrite{Op: "update", IDs: []int64{id}, Update: update})
	m.mu.Unlock()

	updated := zendesk.Record{}
	for k, v := range t {
		updated[k] = v
	}
	if update.Status != "" {
		updated["status"] = update.Status
	}
	if update.Priority != "" {
		updated["priority"] = update.Priority
	}
	return updated, nil
}

// UpdateManyTickets implements zendesk.TicketManager.
func (m *MockZendeskClient) UpdateManyTickets(_ context.Context, ids []int64, update zendesk.TicketUpdate) (zendesk.Record, error) {
	if err := m.record("UpdateManyTickets"); err != nil {
		return nil, err
	}
	if len(ids) == 0 || len(ids) > zendesk.MaxShowMany {
		return nil, &zendesk.RequestError{StatusCode: 400, Message: "ids must hold 1 to 100 tickets"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, TicketWrite{Op: "update_many", IDs: append([]int64(nil), ids...), Update: update})
	m.nextJob++
	return zendesk.Record{
		"id":     fmt.Sprintf("job-%d", m.nextJob),
		"status": "queued",
		"total":  float64(len(ids)),
	}, nil
}

// GetTicketMetrics implements zendesk.TicketManager.
func (m *MockZendeskClient) GetTicketMetrics(_ context.Context, ticketID int64) (zendesk.Record, error) {
	if err := m.record("GetTicketMetrics"); err != nil {
		return nil, err
	}
	r, ok := m.TicketMetrics[ticketID]
	if !ok {
		return nil, &zendesk.NotFoundError{Resource: "ticket metric", ID: ticketID}
	}
	return r, nil
}

// ListTicketMetrics implements zendesk.TicketManager.
func (m *MockZendeskClient) ListTicketMetrics(_ context.Context, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("ListTicketMetrics"); err != nil {
		return nil, err
	}
	return collection(sortedByID(m.TicketMetrics), opts), nil
}

// CountTickets implements zendesk.TicketManager.
func (m *MockZendeskClient) CountTickets(_ context.Context) (int, error) {
	if err := m.record("CountTickets"); err != nil {
		return 0, err
	}
	return len(m.Tickets), nil
}

// Search implements zendesk.SearchManager.
func (m *MockZendeskClient) Search(_ context.Context, query string, opts zendesk.SearchOptions) (*zendesk.Collection, error) {
	if err := m.record("Search"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(query, opts)
	}
	return collection(sortedByID(m.Tickets), opts.ListOptions), nil
}

// SearchCount implements zendesk.SearchManager.
func (m *MockZendeskClient) SearchCount(_ context.Context, query string) (int, error) {
	if err := m.record("SearchCount"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.CountFunc != nil {
		return m.CountFunc(query)
	}
	return 0, nil
}

// GetUser implements zendesk.PeopleManager.
func (m *MockZendeskClient) GetUser(_ context.Context, id int64) (zendesk.Record, error) {
	if err := m.record("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, &zendesk.NotFoundError{Resource: "user", ID: id}
	}
	return u, nil
}

// GetUsers implements zendesk.PeopleManager.
func (m *MockZendeskClient) GetUsers(_ context.Context, ids []int64) ([]zendesk.Record, error) {
	if err := m.record("GetUsers"); err != nil {
		return nil, err
	}
	var out []zendesk.Record
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// CurrentUser implements zendesk.PeopleManager.
func (m *MockZendeskClient) CurrentUser(_ context.Context) (zendesk.Record, error) {
	if err := m.record("CurrentUser"); err != nil {
		return nil, err
	}
	if m.Me == nil {
		return zendesk.Record{"id": float64(1), "name": "Agent", "role": "agent"}, nil
	}
	return m.Me, nil
}

// ListUserTickets implements zendesk.PeopleManager.
func (m *MockZendeskClient) ListUserTickets(_ context.Context, userID int64, _ zendesk.UserTicketRelation, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("ListUserTickets"); err != nil {
		return nil, err
	}
	return collection(m.UserTickets[userID], opts), nil
}

// ListOrganizationTickets implements zendesk.PeopleManager.
func (m *MockZendeskClient) ListOrganizationTickets(_ context.Context, orgID int64, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("ListOrganizationTickets"); err != nil {
		return nil, err
	}
	return collection(m.OrgTickets[orgID], opts), nil
}

// ListSatisfactionRatings implements zendesk.PeopleManager.
func (m *MockZendeskClient) ListSatisfactionRatings(_ context.Context, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("ListSatisfactionRatings"); err != nil {
		return nil, err
	}
	return collection(m.Ratings, opts), nil
}

// SearchArticles implements zendesk.HelpCenterManager.
func (m *MockZendeskClient) SearchArticles(_ context.Context, query string, opts zendesk.ListOptions) (*zendesk.Collection, error) {
	if err := m.record("SearchArticles"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	return collection(m.Articles, opts), nil
}

// ListSections implements zendesk.HelpCenterManager.
func (m *MockZendeskClient) ListSections(_ context.Context) (*zendesk.Collection, error) {
	if err := m.record("ListSections"); err != nil {
		return nil, err
	}
	return collection(m.Sections, zendesk.ListOptions{}), nil
}

// ListSectionArticles implements zendesk.HelpCenterManager.
func (m *MockZendeskClient) ListSectionArticles(_ context.Context, sectionID int64) (*zendesk.Collection, error) {
	if err := m.record("ListSectionArticles"); err != nil {
		return nil, err
	}
	return collection(m.SectionArticles[sectionID], zendesk.ListOptions{}), nil
}

// Ping implements zendesk.Client.
func (m *MockZendeskClient) Ping(_ context.Context) error {
	return m.record("Ping")
}

// MockLogger implements server.Logger interface for testing.
// It discards all log messages.
type MockLogger struct{}

// Debug implements server.Logger.
func (l *MockLogger) Debug(_ string, _ ...interface{}) {}

// Info implements server.Logger.
func (l *MockLogger) Info(_ string, _ ...interface{}) {}

// Warn implements server.Logger.
func (l *MockLogger) Warn(_ string, _ ...interface{}) {}

// Error implements server.Logger.
func (l *MockLogger) Error(_ string, _ ...interface{}) {}
