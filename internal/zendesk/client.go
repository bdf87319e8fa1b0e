package zendesk

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
	"github.com/giantswarm/mcp-zendesk/internal/logging"
	"github.com/giantswarm/mcp-zendesk/internal/upstream"
)

// Record is one decoded Zendesk object. Numbers decode as float64.
type Record = map[string]interface{}

// Endpoint classes used for metrics and spans. They are bounded so metric
// cardinality stays fixed.
const (
	EndpointTickets             = "tickets"
	EndpointTicketComments      = "ticket_comments"
	EndpointTicketMetrics       = "ticket_metrics"
	EndpointSearch              = "search"
	EndpointUsers               = "users"
	EndpointOrganizations       = "organizations"
	EndpointSatisfactionRatings = "satisfaction_ratings"
	EndpointHelpCenter          = "help_center"
)

const maxResponseBytes = 32 << 20

// Client is the Zendesk API surface used by the MCP tools.
type Client interface {
	TicketManager
	SearchManager
	PeopleManager
	HelpCenterManager

	// Ping checks that Zendesk is reachable and the credentials work.
	Ping(ctx context.Context) error
}

// MetricsRecorder receives one observation per HTTP exchange.
type MetricsRecorder interface {
	RecordZendeskCall(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordZendeskCall(context.Context, string, int, time.Duration) {}

// httpClient implements Client over the Zendesk REST API.
type httpClient struct {
	config   Config
	endpoint *url.URL
	http     *http.Client
	budget   *upstream.Budget
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient replaces the underlying HTTP client. With OAuth credentials
// its transport becomes the base of the token transport.
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) {
		h.http = c
	}
}

// WithBudget sets the rate budget every request goes through.
func WithBudget(b *upstream.Budget) Option {
	return func(h *httpClient) {
		h.budget = b
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *httpClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(h *httpClient) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewClient builds a Client from cfg. Without WithBudget the client gets a
// budget with default settings.
func NewClient(cfg Config, opts ...Option) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()

	endpoint, err := url.Parse(cfg.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("invalid zendesk endpoint: %w", err)
	}

	c := &httpClient{
		config:   cfg,
		endpoint: endpoint,
		logger:   slog.Default(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.budget == nil {
		c.budget = upstream.New(upstream.DefaultConfig(), upstream.WithLogger(c.logger))
	}
	if cfg.OAuthToken != "" {
		base := c.http
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.OAuthToken,
			TokenType:   "Bearer",
		}))
		c.http.Timeout = base.Timeout
	}

	c.logger.Debug("Zendesk client configured",
		logging.Host(endpoint.Host),
		logging.UserHash(cfg.Email),
		"auth", cfg.AuthMode(),
		"max_records", cfg.MaxRecords)
	return c, nil
}

// Budget returns the rate budget the client uses.
func (c *httpClient) Budget() *upstream.Budget {
	return c.budget
}

// request describes one API call.
type request struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	body     interface{}

	// resource and id describe the target for not-found errors.
	resource string
	id       int64
}

// do sends req through the budget and decodes the response into out.
func (c *httpClient) do(ctx context.Context, req request, out interface{}) error {
	target := c.resolve(req.path, req.query)
	return c.doURL(ctx, req, target, out)
}

func (c *httpClient) doURL(ctx context.Context, req request, target string, out interface{}) error {
	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", req.endpoint, err)
		}
	}

	return c.budget.Do(ctx, func(ctx context.Context) error {
		return c.roundTrip(ctx, req, target, payload, out)
	})
}

func (c *httpClient) roundTrip(ctx context.Context, req request, target string, payload []byte, out interface{}) error {
	ctx, span := instrumentation.StartZendeskSpan(ctx, req.endpoint,
		instrumentation.NewSpanAttributeBuilder().WithTicket(req.id).Build()...)
	defer span.End()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.endpoint, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.OAuthToken == "" {
		httpReq.SetBasicAuth(c.config.Email+"/token", c.config.APIToken)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordZendeskCall(ctx, req.endpoint, 0, duration)
		classified := c.transportError(ctx, err)
		c.logger.Debug("Zendesk request failed",
			logging.Endpoint(req.endpoint),
			logging.RequestID(requestID),
			logging.SanitizedErr(err))
		instrumentation.SetSpanError(span, classified)
		return classified
	}
	defer resp.Body.Close()

	c.metrics.RecordZendeskCall(ctx, req.endpoint, resp.StatusCode, duration)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithResponse(resp.StatusCode, requestID).Build()...)
	c.logger.Debug("Zendesk request completed",
		logging.Endpoint(req.endpoint),
		logging.RequestID(requestID),
		logging.Status(strconv.Itoa(resp.StatusCode)),
		slog.Duration(logging.KeyDuration, duration))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		instrumentation.SetSpanSuccess(span)
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", req.endpoint, err)
		}
		return nil
	}

	classified := c.statusError(resp, req)
	var throttled *upstream.ThrottledError
	if errors.As(classified, &throttled) {
		// The budget retries throttled calls; the span is not a failure.
		instrumentation.AddSpanEvent(span, "throttled",
			attribute.Int64(instrumentation.SpanAttrRetryAfter, int64(throttled.RetryAfter/time.Second)))
		return classified
	}
	instrumentation.SetSpanError(span, classified)
	return classified
}

// statusError maps a non-2xx response to the package's error types.
func (c *httpClient) statusError(resp *http.Response, req request) error {
	message := errorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &upstream.ThrottledError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now(), c.budget.Config().MaxRetryAfter),
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == http.StatusUnauthorized:
		return &upstream.UnavailableError{
			Reason:     "authentication failed",
			Hint:       "Check ZENDESK_EMAIL and ZENDESK_API_KEY (or ZENDESK_OAUTH_TOKEN)",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == http.StatusForbidden:
		return &upstream.UnavailableError{
			Reason:     "permission denied",
			Hint:       "The API token's user lacks permission for this operation",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Resource: req.resource, ID: req.id}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &RequestError{StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode >= 500:
		return &upstream.UnavailableError{
			Reason:     "server error",
			Hint:       "Zendesk returned a server error; try again later",
			StatusCode: resp.StatusCode,
			Cause:      messageError(message),
		}
	default:
		return &upstream.UnavailableError{
			Reason:     "unexpected response",
			StatusCode: resp.StatusCode,
			Cause:      messageError(message),
		}
	}
}

// transportError classifies failures that produced no response.
func (c *httpClient) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	host := c.endpoint.Host
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostnameErr      x509.HostnameError
		certErr          *tls.CertificateVerificationError
		recordErr        tls.RecordHeaderError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) ||
		errors.As(err, &certErr) || errors.As(err, &recordErr) {
		return &upstream.UnavailableError{
			Reason: "TLS connection to " + host + " failed",
			Hint:   "Check ZENDESK_SUBDOMAIN and the network path to Zendesk",
			Cause:  err,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &upstream.UnavailableError{
			Reason: "cannot resolve " + host,
			Hint:   "Check ZENDESK_SUBDOMAIN",
			Cause:  err,
		}
	}

	return &upstream.UnavailableError{
		Reason: "request to " + host + " failed",
		Hint:   "Check network connectivity to Zendesk",
		Cause:  err,
	}
}

// resolve joins path onto the API root.
func (c *httpClient) resolve(path string, query url.Values) string {
	u := *c.endpoint
	u.Path = strings.TrimRight(c.endpoint.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// sameOrigin reports whether next points at the configured API host.
func (c *httpClient) sameOrigin(next string) bool {
	u, err := url.Parse(next)
	if err != nil {
		return false
	}
	return u.Scheme == c.endpoint.Scheme && u.Host == c.endpoint.Host
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date, capped at limit. It returns zero when absent or unparseable.
func parseRetryAfter(value string, now time.Time, limit time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || secs <= 0 {
			return 0
		}
		if secs >= limit.Seconds() {
			return limit
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return min(d, limit)
		}
	}
	return 0
}

// errorMessage extracts a short description from a Zendesk error body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return clip(strings.TrimSpace(string(data)), 200)
	}

	var parts []string
	switch e := payload["error"].(type) {
	case string:
		parts = append(parts, e)
	case map[string]interface{}:
		if title, ok := e["title"].(string); ok {
			parts = append(parts, title)
		}
		if msg, ok := e["message"].(string); ok {
			parts = append(parts, msg)
		}
	}
	if desc, ok := payload["description"].(string); ok {
		parts = append(parts, desc)
	}
	if details, ok := payload["details"].(map[string]interface{}); ok && len(details) > 0 {
		if encoded, err := json.Marshal(details); err == nil {
			parts = append(parts, string(encoded))
		}
	}
	return clip(strings.Join(parts, ": "), 200)
}

func messageError(message string) error {
	if message == "" {
		return nil
	}
	return errors.New(message)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
