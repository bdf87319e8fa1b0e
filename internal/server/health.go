package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/mcp-zendesk/internal/upstream"
)

const (
	// DefaultPingInterval is how long a Zendesk reachability result is reused.
	DefaultPingInterval = 30 * time.Second

	pingTimeout = 5 * time.Second
)

// Health endpoint paths.
const (
	livenessPath       = "/healthz"
	readinessPath      = "/readyz"
	detailedHealthPath = "/healthz/detailed"
)

// HealthChecker serves the liveness, readiness and detailed health
// endpoints.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time

	pingInterval time.Duration
	now          func() time.Time

	pingMu      sync.Mutex
	lastPing    time.Time
	lastPingErr error
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		pingInterval:  DefaultPingInterval,
		now:           time.Now,
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information including
// Zendesk reachability and the rate budget.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Version         string                      `json:"version,omitempty"`
	Uptime          string                      `json:"uptime"`
	Zendesk         *ZendeskHealthStatus        `json:"zendesk,omitempty"`
	RateBudget      *upstream.Snapshot          `json:"rate_budget,omitempty"`
	KnowledgeBase   *KnowledgeBaseHealthStatus  `json:"knowledge_base,omitempty"`
	Instrumentation *InstrumentationHealthCheck `json:"instrumentation,omitempty"`
}

// ZendeskHealthStatus reports the last reachability check.
type ZendeskHealthStatus struct {
	Subdomain   string `json:"subdomain,omitempty"`
	Reachable   bool   `json:"reachable"`
	LastChecked string `json:"last_checked,omitempty"`
	Error       string `json:"error,omitempty"`
}

// KnowledgeBaseHealthStatus reports the cache backend in use.
type KnowledgeBaseHealthStatus struct {
	CacheBackend string `json:"cache_backend"`
}

// InstrumentationHealthCheck provides health information about instrumentation.
type InstrumentationHealthCheck struct {
	Enabled         bool   `json:"enabled"`
	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness probes indicate whether the process should be restarted.
// This should be a simple check that the server process is running.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{
			Status: "ok",
		}

		if h.serverContext != nil && h.serverContext.Config() != nil {
			response.Version = h.serverContext.Config().Version
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
// Readiness fails when the server is shutting down or Zendesk cannot be
// reached. Budget state is reported but never fails the probe.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = "not ready"
			allOk = false
		} else {
			checks["ready"] = "ok"
		}

		if h.serverContext != nil && h.serverContext.IsShutdown() {
			checks["shutdown"] = "shutting down"
			allOk = false
		} else {
			checks["shutdown"] = "ok"
		}

		if h.serverContext != nil {
			if err := h.pingZendesk(r.Context()); err != nil {
				checks["zendesk"] = "unreachable"
				allOk = false
			} else {
				checks["zendesk"] = "ok"
			}

			if budget := h.serverContext.Budget(); budget != nil {
				checks["rate_budget"] = string(budget.Snapshot().State)
			}

			if provider := h.serverContext.InstrumentationProvider(); provider != nil {
				if provider.Enabled() {
					checks["instrumentation"] = "ok"
				} else {
					checks["instrumentation"] = "disabled"
				}
			}
		}

		response := HealthResponse{
			Checks: checks,
		}

		if allOk {
			response.Status = "ok"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "not ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle(livenessPath, h.LivenessHandler())
	mux.Handle(readinessPath, h.ReadinessHandler())
	mux.Handle(detailedHealthPath, h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed endpoint.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := DetailedHealthResponse{
			Status: "ok",
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		if h.serverContext != nil {
			config := h.serverContext.Config()
			response.Version = config.Version
			response.Zendesk = h.getZendeskStatus(r.Context(), config.Subdomain)
			if budget := h.serverContext.Budget(); budget != nil {
				snapshot := budget.Snapshot()
				response.RateBudget = &snapshot
			}
			if cache := h.serverContext.KnowledgeBaseCache(); cache != nil {
				response.KnowledgeBase = &KnowledgeBaseHealthStatus{CacheBackend: cache.Backend()}
			}
			response.Instrumentation = h.getInstrumentationStatus()
		}

		switch {
		case !h.ready.Load():
			response.Status = "not ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		case h.serverContext != nil && h.serverContext.IsShutdown():
			response.Status = "shutting down"
			w.WriteHeader(http.StatusServiceUnavailable)
		case response.Zendesk != nil && !response.Zendesk.Reachable:
			response.Status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// pingZendesk checks reachability, reusing a recent result so that probes
// do not spend the rate budget.
func (h *HealthChecker) pingZendesk(ctx context.Context) error {
	h.pingMu.Lock()
	defer h.pingMu.Unlock()

	now := h.now()
	if !h.lastPing.IsZero() && now.Sub(h.lastPing) < h.pingInterval {
		return h.lastPingErr
	}

	client := h.serverContext.ZendeskClient()
	if client == nil {
		return ErrMissingZendeskClient
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	h.lastPingErr = client.Ping(ctx)
	h.lastPing = now
	if h.lastPingErr != nil {
		h.serverContext.Logger().Warn("Zendesk health check failed", "error", h.lastPingErr)
	}
	return h.lastPingErr
}

func (h *HealthChecker) getZendeskStatus(ctx context.Context, subdomain string) *ZendeskHealthStatus {
	err := h.pingZendesk(ctx)

	h.pingMu.Lock()
	checked := h.lastPing
	h.pingMu.Unlock()

	status := &ZendeskHealthStatus{
		Subdomain: subdomain,
		Reachable: err == nil,
	}
	if !checked.IsZero() {
		status.LastChecked = checked.UTC().Format(time.RFC3339)
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// getInstrumentationStatus returns instrumentation health status.
func (h *HealthChecker) getInstrumentationStatus() *InstrumentationHealthCheck {
	provider := h.serverContext.InstrumentationProvider()
	if provider == nil {
		return &InstrumentationHealthCheck{
			Enabled: false,
		}
	}

	config := provider.Config()
	return &InstrumentationHealthCheck{
		Enabled:         provider.Enabled(),
		MetricsExporter: config.MetricsExporter,
		TracingExporter: config.TracingExporter,
	}
}
