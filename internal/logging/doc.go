// Package logging provides structured logging utilities for mcp-zendesk.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email anonymization, credential masking)
//   - IP redaction in hosts and error messages
//   - Consistent attribute naming across the codebase
//   - A Logger interface and SlogAdapter for components that take a logger
//
// # Usage Patterns
//
// Attach attributes through the constructors so keys stay consistent:
//
//	logger.Debug("Zendesk request completed",
//	    logging.Endpoint("tickets.show"),
//	    logging.RequestID(id),
//	    logging.Status("200"))
//
// Sanitize before logging anything that may carry PII or addresses:
//
//	logger.Debug("Zendesk client configured",
//	    logging.UserHash(email),
//	    logging.Host(baseURL))
//	logger.Warn("cache read failed", logging.SanitizedErr(err))
//
// # Security Considerations
//
//   - Agent emails are hashed to allow correlation without leaking PII
//   - API tokens are never logged; SanitizeToken reports only their length
//   - Ticket bodies are never logged, only ids
package logging
