// Package middleware provides HTTP middleware for the MCP Zendesk server:
// security headers, CORS, request size limits, bearer token authentication
// and request metrics.
package middleware
