// Package cmd provides the command-line interface for mcp-zendesk.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-zendesk [flags]                 # Starts the MCP server (default)
//	mcp-zendesk serve [flags]           # Explicitly starts the MCP server
//	mcp-zendesk version                 # Shows version information
//	mcp-zendesk self-update             # Updates to latest release
//
// The serve command supports three transports: stdio (default), sse and
// streamable-http. The HTTP transports also serve /healthz, /readyz and
// /healthz/detailed, and can require a static bearer token (MCP_AUTH_TOKEN).
//
//	mcp-zendesk serve --transport streamable-http --http-addr :8080 --http-endpoint /mcp
//
// Zendesk credentials come from ZENDESK_SUBDOMAIN with ZENDESK_EMAIL and
// ZENDESK_API_KEY, or ZENDESK_OAUTH_TOKEN. Most other flags have an
// environment fallback named in their usage text.
package cmd
