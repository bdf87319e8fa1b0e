// Package server provides the ServerContext and the HTTP infrastructure of
// the MCP Zendesk server.
//
// The ServerContext holds every dependency a tool handler needs:
//
//   - the Zendesk client, whose requests share one upstream.Budget
//   - the response Assembler that bounds every tool result
//   - the ticket categorizers and the knowledge-base cache
//   - the logger, configuration and instrumentation provider
//   - a context cancelled on Shutdown
//
// Dependencies are injected with functional options; optional ones get
// defaults after validation:
//
//	serverCtx, err := NewServerContext(ctx,
//		WithZendeskClient(client),
//		WithBudget(budget),
//		WithLogger(logger),
//		WithNonDestructiveMode(true),
//		WithAllowedOperations([]string{"comment"}),
//	)
//	if err != nil {
//		return err
//	}
//	defer serverCtx.Shutdown()
//
// Config carries the server identity, the Zendesk subdomain and agent, the
// non-destructive mode settings (NonDestructiveMode, DryRun,
// AllowedOperations), the default categorizer and the output.Config of the
// response engine. Config is cloned on injection.
//
// HTTPServer serves the streamable HTTP or SSE transport next to the
// /healthz, /readyz and /healthz/detailed endpoints of HealthChecker.
// Readiness pings Zendesk at most once per DefaultPingInterval so probes do
// not spend the rate budget. MetricsServer exposes Prometheus metrics on a
// separate address.
package server
